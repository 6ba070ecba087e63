package internal

import (
	"strings"
	"sync"
)

// builderPool recycles *strings.Builder for query compilation. Borrow with
// GetBuilder, return with PutBuilder.
//
//	sb := internal.GetBuilder()
//	defer internal.PutBuilder(sb)
//	expr.compile(sb)
var builderPool = sync.Pool{
	New: func() any { return new(strings.Builder) },
}

// GetBuilder fetches a cleared *strings.Builder.
func GetBuilder() *strings.Builder {
	b := builderPool.Get().(*strings.Builder)
	b.Reset()
	return b
}

// PutBuilder returns a Builder to the pool. The caller must not use it
// afterwards.
func PutBuilder(b *strings.Builder) { builderPool.Put(b) }
