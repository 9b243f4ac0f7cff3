package storage

import (
	"math"
	"testing"

	"candidate-search/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestL2Distance(t *testing.T) {
	assert.Equal(t, 0.0, L2Distance([]float32{1, 2}, []float32{1, 2}))
	assert.InDelta(t, 5.0, L2Distance([]float32{0, 0}, []float32{3, 4}), 1e-9)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 1}), "零向量")
}

func TestDistanceFunc(t *testing.T) {
	a, b := []float32{1, 0}, []float32{0, 1}
	assert.InDelta(t, math.Sqrt2, distanceFunc(config.MetricL2)(a, b), 1e-9)
	assert.InDelta(t, 1.0, distanceFunc(config.MetricCosine)(a, b), 1e-9)
	assert.InDelta(t, math.Sqrt2, distanceFunc("")(a, b), 1e-9)
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(&config.MySQLConfig{
		Host: "db", Port: 3306, Username: "u", Password: "p", Database: "resumes",
		ConnectTimeoutSeconds: 5, ReadTimeoutSeconds: 10, WriteTimeoutSeconds: 10,
	})
	assert.Equal(t, "u:p@tcp(db:3306)/resumes?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s&readTimeout=10s&writeTimeout=10s", dsn)
}
