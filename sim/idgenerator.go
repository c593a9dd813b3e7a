package sim

import (
	"strconv"
	"sync"

	"github.com/rs/xid"
)

// IDGenerator generates unique IDs for events and messages.
type IDGenerator interface {
	// Generate an ID.
	Generate() string
}

var idGeneratorInstance IDGenerator
var idGeneratorOnce sync.Once

// GetIDGenerator returns the ID generator used by the current process.
func GetIDGenerator() IDGenerator {
	idGeneratorOnce.Do(func() {
		if idGeneratorInstance == nil {
			idGeneratorInstance = &parallelIDGenerator{}
		}
	})
	return idGeneratorInstance
}

// UseSequentialIDGenerator configures the process to generate sequential IDs.
// It must be called before the first call to GetIDGenerator and is mainly
// useful in tests that need deterministic IDs.
func UseSequentialIDGenerator() {
	idGeneratorInstance = &sequentialIDGenerator{}
}

// UseParallelIDGenerator configures the process to generate IDs that are
// unique across goroutines without locking.
func UseParallelIDGenerator() {
	idGeneratorInstance = &parallelIDGenerator{}
}

type parallelIDGenerator struct {
}

func (g *parallelIDGenerator) Generate() string {
	return xid.New().String()
}

type sequentialIDGenerator struct {
	sync.Mutex
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	g.Lock()
	defer g.Unlock()

	id := strconv.FormatUint(g.nextID, 10)
	g.nextID++

	return id
}
