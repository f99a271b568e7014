package scheduler

import (
	"errors"
	"math/rand"
	"time"

	"github.com/daehee87/fuzzing-bot/internal/types"
)

var (
	ErrEmptyPool = errors.New("no projects available")
	// ErrNoTargets means the build produced nothing runnable. The caller
	// skips the project rather than failing.
	ErrNoTargets = errors.New("no fuzz targets")
)

// Picker makes every random choice of the campaign. All choices are uniform.
type Picker struct {
	rng *rand.Rand
}

func NewPicker(seed int64) *Picker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Picker{rng: rand.New(rand.NewSource(seed))}
}

// NewPool shuffles projects and keeps as many as the free disk space allows,
// one per quota bytes and never fewer than one.
func (p *Picker) NewPool(projects []types.Project, freeBytes, quota uint64) []types.Project {
	if len(projects) == 0 {
		return nil
	}

	pool := make([]types.Project, len(projects))
	copy(pool, projects)
	p.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	return pool[:PoolSize(len(pool), freeBytes, quota)]
}

func PoolSize(available int, freeBytes, quota uint64) int {
	if available == 0 {
		return 0
	}
	size := 1
	if quota > 0 && freeBytes/quota > 1 {
		size = int(min(freeBytes/quota, uint64(available)))
	}
	return size
}

func (p *Picker) ChooseProject(pool []types.Project) (types.Project, error) {
	if len(pool) == 0 {
		return types.Project{}, ErrEmptyPool
	}
	return pool[p.rng.Intn(len(pool))], nil
}

func (p *Picker) ChooseTarget(targets []types.FuzzTarget) (types.FuzzTarget, error) {
	if len(targets) == 0 {
		return types.FuzzTarget{}, ErrNoTargets
	}
	return targets[p.rng.Intn(len(targets))], nil
}
