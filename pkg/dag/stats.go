package dag

// Statistics summarizes the shape of a dependency graph for summary panels.
type Statistics struct {
	TotalTasks                 int     `json:"totalTasks" bson:"totalTasks"`
	TotalDependencies          int     `json:"totalDependencies" bson:"totalDependencies"`
	TasksWithDependencies      int     `json:"tasksWithDependencies" bson:"tasksWithDependencies"` // at least one prerequisite
	TasksWithDependents        int     `json:"tasksWithDependents" bson:"tasksWithDependents"`     // something depends on them
	AverageDependenciesPerTask float64 `json:"averageDependenciesPerTask" bson:"averageDependenciesPerTask"`
	IndependentTasks           int     `json:"independentTasks" bson:"independentTasks"` // no edges at all

	RootTasks      int `json:"rootTasks" bson:"rootTasks"` // nothing depends on them
	LeafTasks      int `json:"leafTasks" bson:"leafTasks"` // depended on, no prerequisites
	CompletedTasks int `json:"completedTasks" bson:"completedTasks"`
	LongestChain   int `json:"longestChain" bson:"longestChain"` // edges
}

// ComputeStatistics aggregates counts over the graph in O(V+E).
func ComputeStatistics(g *Graph) Statistics {
	s := Statistics{
		TotalTasks:        g.NodeCount(),
		TotalDependencies: g.EdgeCount(),
	}

	for _, n := range g.Nodes() {
		out, in := g.OutDegree(n.ID), g.InDegree(n.ID)
		if out > 0 {
			s.TasksWithDependencies++
		}
		if in > 0 {
			s.TasksWithDependents++
		}
		switch {
		case out == 0 && in == 0:
			s.IndependentTasks++
		case in == 0:
			s.RootTasks++
		case out == 0:
			s.LeafTasks++
		}
		if n.IsCompleted() {
			s.CompletedTasks++
		}
	}

	if s.TotalTasks > 0 {
		s.AverageDependenciesPerTask = float64(s.TotalDependencies) / float64(s.TotalTasks)
	}
	s.LongestChain = MaxChain(g).Length
	return s
}
