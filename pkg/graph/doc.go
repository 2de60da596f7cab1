// Package graph provides the wire formats of the task dependency engine.
//
// Two types cross the package boundary:
//
//   - [Graph]: the records a project is loaded from (tasks and
//     dependencies), used for JSON files, API bodies and document storage
//   - [View]: the derived rendering output (positions, levels, critical path
//     and statistics)
//
// # Graph Format
//
//	{
//	  "nodes": [
//	    {"id": "t1", "status": "in-progress", "projectId": "web", "ownerId": "u1", "name": "Build"},
//	    {"id": "t2", "status": "completed", "projectId": "web", "ownerId": "u1"}
//	  ],
//	  "edges": [
//	    {"dependentTaskId": "t1", "prerequisiteTaskId": "t2"}
//	  ]
//	}
//
// Records are raw: [ToDAG] skips edges that reference unknown tasks, point a
// task at itself or repeat a pair, and returns them so that callers can log
// or report them instead of failing the whole load.
//
// # View Format
//
//	{
//	  "nodes": [{"id": "t2", "position": {"x": 40, "y": 40}, "level": 0}, ...],
//	  "edges": [{"dependentId": "t1", "prerequisiteId": "t2"}],
//	  "criticalPath": ["t1", "t2"],
//	  "statistics": {"totalTasks": 2, ...}
//	}
//
// Both types carry bson tags for the MongoDB store and cache.
package graph
