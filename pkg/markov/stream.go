package markov

import (
	"context"
	"io"
	"log/slog"
)

// Stream walks the chain in a new goroutine and delivers up to n states on
// the returned channel, which is closed once n states have been sent or ctx
// is cancelled. After cancellation the cursor rests on the last state
// received from the channel. The chain must not be used elsewhere until the
// channel is closed.
func (c *Chain[T]) Stream(ctx context.Context, src Source, n int) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				c.logger.DebugContext(ctx, "Stream cancelled by context", slog.Int("sent", i))
				return
			}
			prev := c.cursor
			next := c.NextRand(src)
			select {
			case <-ctx.Done():
				// The draw was never delivered; leave the cursor on the last one that was.
				c.cursor = prev
				c.logger.DebugContext(ctx, "Stream cancelled by context", slog.Int("sent", i))
				return
			case out <- next:
			}
		}
	}()

	return out
}

// WriteText streams up to n tokens from c to w, rendering them the way Join
// does. Tokens are written as they are generated. It returns the number of
// tokens written and ctx's error if the stream was cut short.
func WriteText(ctx context.Context, w io.Writer, c *Chain[string], t Tokenizer, src Source, n int) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	tokens := c.Stream(ctx, src, n)
	defer func() {
		cancel()
		for range tokens {
		}
	}()

	var (
		written int
		last    string
	)
	for token := range tokens {
		var sep string
		if written > 0 {
			sep = t.Separator(last, token)
		}
		if _, err := io.WriteString(w, sep+token); err != nil {
			return written, err
		}
		last = token
		written++
	}
	if err := ctx.Err(); err != nil && written < n {
		return written, err
	}
	if written > 0 {
		if _, err := io.WriteString(w, t.EOC(last)); err != nil {
			return written, err
		}
	}
	return written, nil
}
