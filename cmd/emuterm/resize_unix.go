//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// resizeEvents delivers a value for every SIGWINCH until ctx is done.
func resizeEvents(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)
	go func() {
		defer close(ch)
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch
}
