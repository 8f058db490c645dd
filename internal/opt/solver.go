package opt

import (
	"math"
	"sort"
	"time"
)

// Outcome classifies a solver run. Callers must distinguish "nothing to
// assign" (Optimal with zero selections) from "solver could not finish"
// (Feasible keeps the incumbent usable) and from a real failure (Error).
type Outcome int

const (
	OutcomeOptimal Outcome = iota
	OutcomeFeasible
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOptimal:
		return "optimal"
	case OutcomeFeasible:
		return "feasible"
	default:
		return "error"
	}
}

// Solution is the extracted decision-variable assignment: indices into the
// edge slice passed to Solve, in order of extraction.
type Solution struct {
	Selected  []int
	TotalCost float64
	Assigned  int
	Outcome   Outcome
}

// SearchMetrics reports what the branch-and-bound search did for one run.
type SearchMetrics struct {
	Nodes        int
	Pruned       int
	Improvements int
	BestCost     float64
	Completed    bool
	Duration     time.Duration
}

const costEps = 1e-9

// bbState holds the search data for one Solve call. A dedicated struct keeps
// the hot-path state explicit instead of threading it through closures.
type bbState struct {
	edges   []Edge
	byOrder [][]int // per order: candidate edge indices, cheapest first
	seq     []int   // orders with candidates, fewest options first
	sufMin  []float64

	deadline time.Time
	steps    int
	timedOut bool

	vehUsed []bool
	cur     []int

	bestSel   []int
	bestCost  float64
	bestCount int

	m SearchMetrics
}

// Solve finds a minimum-cost maximum-cardinality matching over the candidate
// edges: one binary variable per edge, at most one selection per order and
// per vehicle. The search is exact and deterministic; if the time budget runs
// out first, the greedy-seeded incumbent is returned as Feasible.
func Solve(edges []Edge, nOrders, nVehicles int, budget time.Duration) (Solution, SearchMetrics) {
	start := time.Now()
	for _, e := range edges {
		if e.OrderIdx < 0 || e.OrderIdx >= nOrders || e.VehicleIdx < 0 || e.VehicleIdx >= nVehicles ||
			math.IsNaN(e.Cost) || math.IsInf(e.Cost, 0) || e.Cost < 0 {
			return Solution{Outcome: OutcomeError}, SearchMetrics{Duration: time.Since(start)}
		}
	}
	if len(edges) == 0 {
		// Nothing to assign is a clean optimal result, not a failure.
		return Solution{Selected: []int{}, Outcome: OutcomeOptimal},
			SearchMetrics{Completed: true, Duration: time.Since(start)}
	}

	s := &bbState{edges: edges, vehUsed: make([]bool, nVehicles)}
	s.deadline = start.Add(budget)
	s.index(nOrders)
	s.seedGreedy()
	s.dfs(0, 0, 0)

	s.m.Completed = !s.timedOut
	s.m.BestCost = s.bestCost
	s.m.Duration = time.Since(start)

	sol := Solution{Selected: s.bestSel, TotalCost: s.bestCost, Assigned: s.bestCount, Outcome: OutcomeOptimal}
	if s.timedOut {
		sol.Outcome = OutcomeFeasible
	}
	return sol, s.m
}

// index groups edges per order, orders each group cheapest-first, and fixes a
// deterministic search sequence (fewest candidates first tightens pruning).
func (s *bbState) index(nOrders int) {
	s.byOrder = make([][]int, nOrders)
	for i, e := range s.edges {
		s.byOrder[e.OrderIdx] = append(s.byOrder[e.OrderIdx], i)
	}
	for o := range s.byOrder {
		row := s.byOrder[o]
		sort.Slice(row, func(a, b int) bool {
			ea, eb := s.edges[row[a]], s.edges[row[b]]
			if ea.Cost != eb.Cost {
				return ea.Cost < eb.Cost
			}
			return ea.VehicleIdx < eb.VehicleIdx
		})
		if len(row) > 0 {
			s.seq = append(s.seq, o)
		}
	}
	sort.Slice(s.seq, func(a, b int) bool {
		la, lb := len(s.byOrder[s.seq[a]]), len(s.byOrder[s.seq[b]])
		if la != lb {
			return la < lb
		}
		return s.seq[a] < s.seq[b]
	})
	// sufMin[i] = sum of each remaining order's cheapest edge: an admissible
	// lower bound on the cost of assigning all orders from position i on.
	s.sufMin = make([]float64, len(s.seq)+1)
	for i := len(s.seq) - 1; i >= 0; i-- {
		cheapest := s.edges[s.byOrder[s.seq[i]][0]].Cost
		s.sufMin[i] = s.sufMin[i+1] + cheapest
	}
}

// seedGreedy installs an incumbent by taking edges cheapest-first wherever
// both sides are still free. A decent incumbent makes the bound bite early.
func (s *bbState) seedGreedy() {
	order := make([]int, len(s.edges))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ea, eb := s.edges[order[a]], s.edges[order[b]]
		if ea.Cost != eb.Cost {
			return ea.Cost < eb.Cost
		}
		if ea.OrderIdx != eb.OrderIdx {
			return ea.OrderIdx < eb.OrderIdx
		}
		return ea.VehicleIdx < eb.VehicleIdx
	})
	ordUsed := map[int]bool{}
	vehUsed := map[int]bool{}
	sel := []int{}
	total := 0.0
	for _, i := range order {
		e := s.edges[i]
		if ordUsed[e.OrderIdx] || vehUsed[e.VehicleIdx] {
			continue
		}
		ordUsed[e.OrderIdx] = true
		vehUsed[e.VehicleIdx] = true
		sel = append(sel, i)
		total += e.Cost
	}
	s.bestSel = sel
	s.bestCost = total
	s.bestCount = len(sel)
}

// checkDeadline is sparse: one time.Now per 1024 nodes keeps overhead
// negligible while still honoring the budget.
func (s *bbState) checkDeadline() bool {
	s.steps++
	if s.steps&1023 != 0 {
		return s.timedOut
	}
	if time.Now().After(s.deadline) {
		s.timedOut = true
	}
	return s.timedOut
}

func (s *bbState) dfs(pos, count int, cost float64) {
	if s.checkDeadline() {
		return
	}
	s.m.Nodes++

	remaining := len(s.seq) - pos
	// Bound 1: even assigning every remaining order cannot reach the best
	// cardinality.
	if count+remaining < s.bestCount {
		s.m.Pruned++
		return
	}
	// Bound 2: matching the best cardinality requires assigning all remaining
	// orders, each at no less than its cheapest edge.
	if count+remaining == s.bestCount && cost+s.sufMin[pos] >= s.bestCost-costEps {
		s.m.Pruned++
		return
	}

	if pos == len(s.seq) {
		if count > s.bestCount || (count == s.bestCount && cost < s.bestCost-costEps) {
			s.bestSel = append([]int(nil), s.cur...)
			s.bestCost = cost
			s.bestCount = count
			s.m.Improvements++
		}
		return
	}

	o := s.seq[pos]
	for _, ei := range s.byOrder[o] {
		e := s.edges[ei]
		if s.vehUsed[e.VehicleIdx] {
			continue
		}
		s.vehUsed[e.VehicleIdx] = true
		s.cur = append(s.cur, ei)
		s.dfs(pos+1, count+1, cost+e.Cost)
		s.cur = s.cur[:len(s.cur)-1]
		s.vehUsed[e.VehicleIdx] = false
		if s.timedOut {
			return
		}
	}
	// Leaving the order unassigned is always a legal branch.
	s.dfs(pos+1, count, cost)
}
