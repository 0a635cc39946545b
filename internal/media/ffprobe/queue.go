package ffprobe

// lineQueue is an unbounded FIFO between a line producer and one consumer.
// Sends on In never block for longer than it takes to append to the buffer,
// so a slow consumer cannot stall the ffprobe process. Out is closed once In
// is closed and every buffered line has been delivered.
type lineQueue struct {
	in  chan string
	out chan string
}

func newLineQueue() *lineQueue {
	q := &lineQueue{in: make(chan string), out: make(chan string)}
	go q.run()
	return q
}

func (q *lineQueue) In() chan<- string { return q.in }

func (q *lineQueue) Out() <-chan string { return q.out }

func (q *lineQueue) run() {
	defer close(q.out)
	var pending []string
	in := q.in
	for in != nil || len(pending) > 0 {
		var out chan string
		var next string
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}
		select {
		case line, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, line)
		case out <- next:
			pending[0] = ""
			pending = pending[1:]
		}
	}
}
