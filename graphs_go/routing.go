package graphs_go

import (
	"container/heap"
	"fmt"
	"math"
)

// Route is the result of a route resolution. Found == false is the explicit
// "no path" outcome; Nodes and Edges are nil in that case.
type Route struct {
	Found           bool      `json:"found"`
	OriginNode      int64     `json:"origin_node"`
	DestinationNode int64     `json:"destination_node"`
	Nodes           []int64   `json:"nodes,omitempty"`
	Edges           []EdgeKey `json:"edges,omitempty"`
	Cost            float64   `json:"total_cost"`
}

// ResolveRoute snaps both coordinates to their nearest nodes and returns the
// cheapest path between them by CurrentCost.
func (g *Graph) ResolveRoute(origin, destination Coordinate) (Route, error) {
	startID, _, err := g.NearestNode(origin)
	if err != nil {
		return Route{}, fmt.Errorf("could not snap origin: %w", err)
	}
	goalID, _, err := g.NearestNode(destination)
	if err != nil {
		return Route{}, fmt.Errorf("could not snap destination: %w", err)
	}
	return g.ShortestPath(startID, goalID)
}

// ShortestPath runs Dijkstra from startID to goalID using CurrentCost.
//
// Ties are broken deterministically: the heap pops the lower node id first
// among equal distances, a node reached at equal cost keeps the predecessor
// with the lower id, and among parallel edges the cheaper one (then the lower
// key) is taken.
func (g *Graph) ShortestPath(startID, goalID int64) (Route, error) {
	if _, ok := g.nodes[startID]; !ok {
		return Route{}, fmt.Errorf("start node %d: %w", startID, ErrNodeNotFound)
	}
	if _, ok := g.nodes[goalID]; !ok {
		return Route{}, fmt.Errorf("goal node %d: %w", goalID, ErrNodeNotFound)
	}

	result := Route{OriginNode: startID, DestinationNode: goalID}
	if startID == goalID {
		result.Found = true
		result.Nodes = []int64{startID}
		return result, nil
	}

	dist := map[int64]float64{startID: 0}
	cameFrom := make(map[int64]EdgeKey)
	closed := make(map[int64]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{node: startID, priority: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if closed[current] {
			continue
		}
		closed[current] = true
		if current == goalID {
			break
		}

		for _, e := range g.bestOutgoing(current) {
			neighbor := e.ToID
			if closed[neighbor] {
				continue
			}
			tentative := dist[current] + e.CurrentCost
			old, seen := dist[neighbor]
			switch {
			case !seen || tentative < old:
				dist[neighbor] = tentative
				cameFrom[neighbor] = e.Ref()
				heap.Push(pq, &pqItem{node: neighbor, priority: tentative})
			case tentative == old && current < cameFrom[neighbor].FromID:
				cameFrom[neighbor] = e.Ref()
			}
		}
	}

	if !closed[goalID] {
		return result, nil
	}

	result.Found = true
	result.Cost = dist[goalID]
	result.Nodes, result.Edges = reconstructPath(cameFrom, startID, goalID)
	return result, nil
}

// bestOutgoing collapses parallel edges from id to the cheapest one per
// target, keeping the insertion order of first appearance.
func (g *Graph) bestOutgoing(id int64) []Edge {
	list := g.edges[id]
	best := make([]Edge, 0, len(list))
	at := make(map[int64]int, len(list))
	for _, e := range list {
		i, ok := at[e.ToID]
		if !ok {
			at[e.ToID] = len(best)
			best = append(best, e)
			continue
		}
		if e.CurrentCost < best[i].CurrentCost {
			best[i] = e
		}
	}
	return best
}

func reconstructPath(cameFrom map[int64]EdgeKey, startID, goalID int64) ([]int64, []EdgeKey) {
	var nodes []int64
	var edges []EdgeKey
	current := goalID
	for current != startID {
		e := cameFrom[current]
		nodes = append(nodes, current)
		edges = append(edges, e)
		current = e.FromID
	}
	nodes = append(nodes, startID)

	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return nodes, edges
}

// PathCost sums CurrentCost along consecutive nodes, using the cheapest
// parallel edge for each hop. It returns +Inf if a hop has no edge.
func (g *Graph) PathCost(nodes []int64) float64 {
	total := 0.0
	for i := 0; i+1 < len(nodes); i++ {
		hop := math.Inf(1)
		for _, e := range g.edges[nodes[i]] {
			if e.ToID == nodes[i+1] && e.CurrentCost < hop {
				hop = e.CurrentCost
			}
		}
		total += hop
	}
	return total
}

type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}
