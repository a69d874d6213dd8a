package scheduler

// jobHeap orders poll jobs by next run. index tracks each job's slot so
// Remove can drop a path's timer when its last subscriber leaves.
type jobHeap []*PollJob

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].nextRun.Before(h[j].nextRun) }
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *jobHeap) Push(x any) {
	n := len(*h)
	item := x.(*PollJob)
	item.index = n
	*h = append(*h, item)
}
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}
