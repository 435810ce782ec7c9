package plan

import (
	"fmt"
	"strings"

	"github.com/inquestai/inquest/internal/types"
)

// Graph is the dependency graph induced by a plan's dependency sets. Steps
// are held in an index-based arena with adjacency lists; the graph itself is
// immutable after Resolve, all mutable execution state lives on the steps and
// is owned by the engine's coordinating goroutine.
type Graph struct {
	plan *Plan

	// index maps a step ID to its arena position (declaration order).
	index map[types.ID]int

	// dependents[i] lists arena indices of steps that depend on step i.
	dependents [][]int

	// deps[i] lists arena indices of step i's dependencies.
	deps [][]int

	// order is a valid topological order computed during resolution.
	order []int
}

// Resolver validates plans and builds dependency graphs.
type Resolver struct{}

// NewResolver creates a new Resolver instance.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve validates the plan and builds its dependency graph. It fails fast,
// before any tool is invoked, on duplicate step identities, dependencies on
// steps absent from the plan, and dependency cycles.
func (r *Resolver) Resolve(p *Plan) (*Graph, error) {
	if p == nil || len(p.Steps) == 0 {
		return nil, types.NewError(types.PLAN_INVALID, "plan must contain at least one step")
	}

	index := make(map[types.ID]int, len(p.Steps))
	for i, s := range p.Steps {
		if s.ID.IsZero() {
			return nil, types.NewError(types.PLAN_INVALID, fmt.Sprintf("step at position %d has no identifier", i))
		}
		if s.Tool == "" {
			return nil, types.NewError(types.PLAN_INVALID, fmt.Sprintf("step %q has no tool name", s.ID))
		}
		if _, exists := index[s.ID]; exists {
			return nil, types.NewError(types.PLAN_DUPLICATE_STEP, fmt.Sprintf("duplicate step identifier %q", s.ID))
		}
		index[s.ID] = i
	}

	g := &Graph{
		plan:       p,
		index:      index,
		dependents: make([][]int, len(p.Steps)),
		deps:       make([][]int, len(p.Steps)),
	}

	for i, s := range p.Steps {
		for _, depID := range s.DependsOn {
			j, ok := index[depID]
			if !ok {
				return nil, types.NewError(types.PLAN_UNKNOWN_DEPENDENCY,
					fmt.Sprintf("step %q depends on %q which is not in the plan", s.ID, depID))
			}
			if j == i {
				return nil, types.NewError(types.PLAN_CYCLE, fmt.Sprintf("cycle detected: %s -> %s", s.ID, s.ID))
			}
			g.deps[i] = append(g.deps[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
	}

	order, err := g.topologicalOrder()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// topologicalOrder runs Kahn's algorithm over the arena. If any step cannot
// be ordered, the leftover steps form the cycle set and are named in the
// returned validation error.
func (g *Graph) topologicalOrder() ([]int, error) {
	inDegree := make([]int, len(g.plan.Steps))
	for i := range g.deps {
		inDegree[i] = len(g.deps[i])
	}

	queue := make([]int, 0, len(inDegree))
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(inDegree))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, dep := range g.dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(g.plan.Steps) {
		// Every step with a remaining in-degree participates in (or depends
		// on) a cycle; report the participants in declaration order.
		var members []string
		for i, d := range inDegree {
			if d > 0 {
				members = append(members, g.plan.Steps[i].ID.String())
			}
		}
		return nil, types.NewError(types.PLAN_CYCLE,
			fmt.Sprintf("cycle detected among steps: %s", strings.Join(members, ", ")))
	}

	return order, nil
}

// Plan returns the plan this graph was built from.
func (g *Graph) Plan() *Plan {
	return g.plan
}

// TopologicalOrder returns step IDs in a valid dispatch order.
func (g *Graph) TopologicalOrder() []types.ID {
	ids := make([]types.ID, len(g.order))
	for i, idx := range g.order {
		ids[i] = g.plan.Steps[idx].ID
	}
	return ids
}

// ReadySteps returns all pending steps whose every dependency has completed,
// transitioning them to ready. Must only be called from the engine's
// coordinating goroutine.
func (g *Graph) ReadySteps() []*Step {
	var ready []*Step
	for i, s := range g.plan.Steps {
		if s.Status != StepStatusPending {
			continue
		}

		eligible := true
		for _, j := range g.deps[i] {
			if g.plan.Steps[j].Status != StepStatusCompleted {
				eligible = false
				break
			}
		}

		if eligible {
			s.Status = StepStatusReady
			ready = append(ready, s)
		}
	}
	return ready
}

// PropagateBlocked marks every direct and transitive dependent of the given
// step as blocked, cascading, and returns the steps newly blocked. Steps that
// already reached a terminal status are left untouched. Must only be called
// from the engine's coordinating goroutine.
func (g *Graph) PropagateBlocked(from types.ID) []*Step {
	start, ok := g.index[from]
	if !ok {
		return nil
	}

	var blocked []*Step
	queue := []int{start}
	seen := make(map[int]bool, len(g.plan.Steps))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, i := range g.dependents[current] {
			if seen[i] {
				continue
			}
			seen[i] = true

			s := g.plan.Steps[i]
			if s.Status == StepStatusPending || s.Status == StepStatusReady {
				s.Status = StepStatusBlocked
				s.BlockedBy = from
				blocked = append(blocked, s)
			}
			queue = append(queue, i)
		}
	}

	return blocked
}

// Dependencies returns the IDs of the given step's direct dependencies.
func (g *Graph) Dependencies(id types.ID) []types.ID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]types.ID, 0, len(g.deps[i]))
	for _, j := range g.deps[i] {
		out = append(out, g.plan.Steps[j].ID)
	}
	return out
}
