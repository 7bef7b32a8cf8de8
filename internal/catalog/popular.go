package catalog

import (
	"math/rand"
	"sort"
)

// popularSeed 固定种子，同一目录的热门抽样结果可复现
const popularSeed = 42

// priceTiers 热门商品的价格档：中位数 80%-120%，放宽到 50%-200%，最后全目录
var priceTiers = [][2]float64{{0.8, 1.2}, {0.5, 2.0}}

// Popular 选出 n 个"热门"商品位置。
// 逐档填充，直到凑满 n 个；溢出的那一档随机抽样以增加多样性，
// 抽中的商品保持目录顺序。
func (c *Catalog) Popular(n int) []int {
	return c.tiered(n, true)
}

// Default 新用户的默认推荐：与 Popular 相同的价格档，但不抽样，直接取前 n 个
func (c *Catalog) Default(n int) []int {
	return c.tiered(n, false)
}

func (c *Catalog) tiered(n int, sample bool) []int {
	if n <= 0 || len(c.items) == 0 {
		return nil
	}
	if n > len(c.items) {
		n = len(c.items)
	}

	rng := rand.New(rand.NewSource(popularSeed))
	picked := make(map[int]struct{}, n)
	out := make([]int, 0, n)

	take := func(tier []int) {
		var fresh []int
		for _, idx := range tier {
			if _, ok := picked[idx]; !ok {
				fresh = append(fresh, idx)
			}
		}
		need := n - len(out)
		if len(fresh) > need {
			if sample {
				rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
				fresh = fresh[:need]
				sort.Ints(fresh)
			} else {
				fresh = fresh[:need]
			}
		}
		for _, idx := range fresh {
			picked[idx] = struct{}{}
			out = append(out, idx)
		}
	}

	for _, t := range priceTiers {
		take(c.Band(t[0], t[1]))
		if len(out) >= n {
			return out
		}
	}

	all := make([]int, len(c.items))
	for i := range all {
		all[i] = i
	}
	take(all)
	return out
}
