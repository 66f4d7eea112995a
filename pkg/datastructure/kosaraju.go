package datastructure

// StronglyConnectedComponents runs Kosaraju's algorithm over the intersections of g, following one-way
// restrictions. components[v] is the component of intersection v; components are numbered 0..count-1.
// Both passes use explicit stacks, street networks are too deep for recursion.
func (g *Graph) StronglyConnectedComponents() (components []int32, count int) {
	n := g.NumberOfVertices()

	// first pass: finish order on the forward graph
	order := make([]IntersectionIdx, 0, n)
	visited := make([]bool, n)
	type frame struct {
		v    IntersectionIdx
		next OutEdgeIdx
	}
	stack := make([]frame, 0, 64)
	for s := 0; s < n; s++ {
		if visited[s] {
			continue
		}
		visited[s] = true
		stack = append(stack, frame{IntersectionIdx(s), g.firstOut[s]})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == g.firstOut[top.v+1] {
				order = append(order, top.v)
				stack = stack[:len(stack)-1]
				continue
			}
			head := g.outEdges[top.next].head
			top.next++
			if !visited[head] {
				visited[head] = true
				stack = append(stack, frame{head, g.firstOut[head]})
			}
		}
	}

	// second pass: reverse graph in decreasing finish time
	components = make([]int32, n)
	for i := range components {
		components[i] = -1
	}
	pending := make([]IntersectionIdx, 0, 64)
	for i := len(order) - 1; i >= 0; i-- {
		root := order[i]
		if components[root] != -1 {
			continue
		}
		c := int32(count)
		count++
		components[root] = c
		pending = append(pending[:0], root)
		for len(pending) > 0 {
			v := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			g.ForInEdgesOf(v, func(e OutEdgeIdx, _ OutEdge) {
				if u := g.tails[e]; components[u] == -1 {
					components[u] = c
					pending = append(pending, u)
				}
			})
		}
	}
	return components, count
}

// LargestComponent lists the intersections of the biggest strongly connected component in increasing order.
func LargestComponent(components []int32, count int) []IntersectionIdx {
	if count == 0 {
		return nil
	}
	sizes := make([]int, count)
	for _, c := range components {
		sizes[c]++
	}
	best := 0
	for c := 1; c < count; c++ {
		if sizes[c] > sizes[best] {
			best = c
		}
	}

	res := make([]IntersectionIdx, 0, sizes[best])
	for v, c := range components {
		if int(c) == best {
			res = append(res, IntersectionIdx(v))
		}
	}
	return res
}
