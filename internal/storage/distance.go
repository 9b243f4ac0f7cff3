package storage

import (
	"math"

	"candidate-search/internal/config"
)

// L2Distance 欧氏距离
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance 1 - 余弦相似度，与 pgvector 的 <=> 一致；零向量距离记为 1
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// distanceFunc 返回度量对应的距离函数
func distanceFunc(metric string) func(a, b []float32) float64 {
	if metric == config.MetricCosine {
		return CosineDistance
	}
	return L2Distance
}
