// spinner.go implements the spinner displayed while kview resolves the pod to follow.
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StartSpinner prints a lightweight ASCII spinner until the returned
// stop function is called. The stop function prints either "[done]"
// or "[fail]" depending on the success flag. When w is not a terminal
// nothing animates and only the final status line is written.
func StartSpinner(w io.Writer, message string) func(success bool) {
	frames := []rune{'|', '/', '-', '\\'}
	done := make(chan struct{})
	finished := make(chan struct{})
	animate := IsTerminal(w)
	go func() {
		defer close(finished)
		if !animate {
			<-done
			return
		}
		defer fmt.Fprintf(w, "\r%s    \r", message)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		idx := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %c", message, frames[idx])
				idx = (idx + 1) % len(frames)
			}
		}
	}()
	var once sync.Once
	return func(success bool) {
		once.Do(func() {
			close(done)
			<-finished
			status := "[done]"
			if !success {
				status = "[fail]"
			}
			fmt.Fprintf(w, "%s %s\n", message, status)
		})
	}
}
