package services

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aiwuxian/resonance-wiki/internal/models"
)

// SubStatsPerEcho 每个声骸的副词条数量
const SubStatsPerEcho = 4

// RandomSource 返回 [0,1) 均匀分布的随机数
type RandomSource interface {
	Float64() float64
}

// Roller 词条投掷器，可并发使用
type Roller struct {
	mu  sync.Mutex
	src RandomSource
}

// NewRoller 创建投掷器，seed 为 0 时使用当前时间
func NewRoller(seed int64) *Roller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewRollerWithSource(rand.New(rand.NewSource(seed)))
}

// NewRollerWithSource 使用指定随机源
func NewRollerWithSource(src RandomSource) *Roller {
	return &Roller{src: src}
}

// Roll 在 [min,max) 内投掷，integer 为 true 时向下取整，否则保留一位小数
func (r *Roller) Roll(min, max float64, integer bool) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roll(min, max, integer)
}

func (r *Roller) roll(min, max float64, integer bool) float64 {
	if max <= min {
		return min
	}
	v := min + r.src.Float64()*(max-min)
	if v >= max {
		v = math.Nextafter(max, min)
	}

	if integer {
		n := math.Floor(v)
		if hi := math.Floor(max); n >= hi && hi > math.Floor(min) {
			n = hi - 1
		}
		return n
	}

	out := roundTenth(v)
	if out >= max {
		out = math.Floor(v*10) / 10
	}
	if out < min {
		out = math.Ceil(min*10) / 10
		if out >= max {
			return min
		}
	}
	return out
}

// RollMainStat 按 cost 和主词条名投掷数值，区间不存在时返回 false
func (r *Roller) RollMainStat(cost int, stat string, ranges map[int]map[string]models.StatRange) (float64, bool) {
	rng, ok := ranges[cost][stat]
	if !ok {
		return 0, false
	}
	return r.Roll(rng.Min, rng.Max, false), true
}

// RollSubStats 从候选池中不重复地抽取 count 个副词条并投掷数值
// 没有数值区间的名字会先被剔除；候选不足 count 个时全部返回
func (r *Roller) RollSubStats(pool []string, ranges map[string]models.StatRange, count int) []models.SubStat {
	candidates := make([]string, 0, len(pool))
	seen := make(map[string]bool, len(pool))
	for _, name := range pool {
		if _, ok := ranges[name]; !ok || seen[name] {
			continue
		}
		seen[name] = true
		candidates = append(candidates, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.shuffle(candidates)
	if count > len(candidates) {
		count = len(candidates)
	}

	out := make([]models.SubStat, 0, count)
	for _, name := range candidates[:count] {
		rng := ranges[name]
		k, known := ParseStatKind(name)
		out = append(out, models.SubStat{
			Stat:  name,
			Value: r.roll(rng.Min, rng.Max, known && k.RollsAsInteger()),
		})
	}
	return out
}

// shuffle Fisher-Yates 洗牌，调用方需持有锁
func (r *Roller) shuffle(names []string) {
	for i := len(names) - 1; i > 0; i-- {
		j := int(r.src.Float64() * float64(i+1))
		if j > i {
			j = i
		}
		names[i], names[j] = names[j], names[i]
	}
}
