package integrations

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"cacheplan/internal/model"
)

// Codec converts between an external representation and the problem types.
type Codec interface {
	Name() string
	DecodeInstance(r io.Reader) (*model.Instance, error)
	EncodeAssignment(w io.Writer, a model.Assignment) error
}

var (
	mu     sync.RWMutex
	codecs = map[string]Codec{}
)

// Register makes a codec available by name. Registering a name twice is a
// programming error.
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := codecs[c.Name()]; dup {
		panic(fmt.Sprintf("integrations: codec %q already registered", c.Name()))
	}
	codecs[c.Name()] = c
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
	return c, nil
}

// Names lists the registered codecs.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(codecs))
	for n := range codecs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
