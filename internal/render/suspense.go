package render

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Boundary and segment element id prefixes.
const (
	boundaryPrefix = "sf-b-"
	segmentPrefix  = "sf-s-"
)

// revealScript defines the swap helper used by every segment.
const revealScript = `function $RC(b,s){var t=document.getElementById(b),n=document.getElementById(s);` +
	`if(!t||!n)return;t.replaceWith.apply(t,Array.prototype.slice.call(n.childNodes));n.remove()}`

// Resolver produces the content of a boundary. A nil Node renders nothing.
type Resolver func(ctx context.Context) (Node, error)

type boundary struct {
	id      int
	resolve Resolver
}

type idSource struct {
	mu   sync.Mutex
	next int
}

func (s *idSource) take() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}

// Suspense renders fallback now and the resolved node once it is ready.
// Outside a stream the resolver runs inline.
func Suspense(fallback Node, resolve Resolver) Node {
	return NodeFunc(func(rc *Context, w io.Writer) error {
		if rc.pending == nil {
			n, err := resolve(rc.ctx)
			if err != nil {
				return err
			}
			if n == nil {
				return nil
			}
			return n.Render(rc, w)
		}

		id := rc.ids.take()
		if _, err := fmt.Fprintf(w, `<div id="%s%d">`, boundaryPrefix, id); err != nil {
			return err
		}
		if fallback != nil {
			if err := fallback.Render(rc, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</div>`); err != nil {
			return err
		}
		*rc.pending = append(*rc.pending, boundary{id: id, resolve: resolve})
		return nil
	})
}
