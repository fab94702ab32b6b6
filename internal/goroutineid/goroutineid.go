// Package goroutineid identifies the calling goroutine. The debugger uses it
// to tell the control goroutine apart from the execution goroutine.
package goroutineid

import (
	"bytes"
	"runtime"
	"sync"
)

var stackBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 64)
		return &b
	},
}

var goroutinePrefix = []byte("goroutine ")

// Get returns the ID of the calling goroutine, or 0 if it cannot be parsed.
func Get() int64 {
	bp := stackBufPool.Get().(*[]byte)
	defer stackBufPool.Put(bp)
	n := runtime.Stack(*bp, false)
	return parse((*bp)[:n])
}

// parse reads the integer following "goroutine " in the first line of a
// runtime stack trace. It does not allocate.
func parse(stack []byte) int64 {
	i := bytes.Index(stack, goroutinePrefix)
	if i < 0 {
		return 0
	}
	var id int64
	for _, b := range stack[i+len(goroutinePrefix):] {
		if b < '0' || b > '9' {
			break
		}
		id = id*10 + int64(b-'0')
	}
	return id
}
