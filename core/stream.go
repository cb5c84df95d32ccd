package core

// Fragment is one chunk of streamed inference output.
type Fragment struct {
	Text string `json:"text"`
}

// Stream is a single-use, forward-only sequence of output fragments produced
// by a streaming inference. It follows the pull idiom of the provider SDKs:
//
//	for stream.Next() {
//		fmt.Print(stream.Current().Text)
//	}
//	if err := stream.Err(); err != nil {
//		return err
//	}
//
// Next blocks until the producer yields a fragment, finishes, or reports a
// terminal error. A Stream is not restartable and must not be shared between
// goroutines. Consumers abandon a stream by cancelling the context passed to
// ProcessInference; simply stopping iteration leaves buffered production
// pending until that cancellation.
type Stream struct {
	fragments <-chan Fragment
	errs      <-chan error
	current   Fragment
	err       error
	done      bool
}

// NewStream wraps producer channels in a pull-based stream. The producer must
// close fragments when the sequence ends and may deliver at most one terminal
// error on errs before closing it.
func NewStream(fragments <-chan Fragment, errs <-chan error) *Stream {
	return &Stream{fragments: fragments, errs: errs}
}

// Next advances to the next fragment. It returns false once the sequence is
// exhausted or a terminal error occurred; inspect Err after the loop.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for {
		select {
		case f, ok := <-s.fragments:
			if !ok {
				s.finish()
				return false
			}
			s.current = f
			return true
		case err, ok := <-s.errs:
			if ok && err != nil {
				s.err = err
				s.done = true
				return false
			}
			// Closed without an error: keep draining fragments. A nil
			// channel blocks forever, removing this case from the select.
			s.errs = nil
		}
	}
}

// finish marks the stream exhausted and captures a terminal error if the
// producer left one behind.
func (s *Stream) finish() {
	s.done = true
	if s.errs == nil {
		return
	}
	select {
	case err, ok := <-s.errs:
		if ok && err != nil {
			s.err = err
		}
	default:
	}
}

// Current returns the fragment produced by the last successful Next call.
func (s *Stream) Current() Fragment {
	return s.current
}

// Err returns the terminal error, if any, once Next has returned false.
func (s *Stream) Err() error {
	return s.err
}

// Text drains the remainder of the stream and returns the concatenation of
// all fragments seen by this call, plus the terminal error if one occurred.
// Like any other consumption, this is single-pass: the stream is exhausted
// afterwards.
func (s *Stream) Text() (string, error) {
	var out []byte
	for s.Next() {
		out = append(out, s.current.Text...)
	}
	return string(out), s.err
}
