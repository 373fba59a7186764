package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/dsf-import/internal/terrain"
)

// ErrCommit wraps host failures.
var ErrCommit = errors.New("scene commit failed")

// Host receives finished scenes. Commit is called once per import with a
// complete scene.
type Host interface {
	Commit(s *Scene) error
}

// Emit stages the scene of result and commits it to host.
func Emit(host Host, result *terrain.Result) (*Scene, error) {
	s := Build(result)
	if err := host.Commit(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	return s, nil
}

// MemoryHost keeps committed scenes in memory.
type MemoryHost struct {
	Scenes []*Scene
}

// Commit stores the scene.
func (h *MemoryHost) Commit(s *Scene) error {
	if s == nil || s.Root == nil {
		return errors.New("empty scene")
	}
	h.Scenes = append(h.Scenes, s)
	return nil
}

// Last returns the most recently committed scene, or nil.
func (h *MemoryHost) Last() *Scene {
	if len(h.Scenes) == 0 {
		return nil
	}
	return h.Scenes[len(h.Scenes)-1]
}
