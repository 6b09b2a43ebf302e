package stats

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestRunningStat(t *testing.T) {
	is := is.New(t)
	type tc struct {
		values []int
		mean   float64
		stdev  float64
	}
	cases := []tc{
		{[]int{10, 12, 23, 23, 16, 23, 21, 16}, 18, 5.2372293656638},
		{[]int{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47.2, 36.937785531891},
		{[]int{1}, 1, 0},
		{[]int{}, 0, 0},
		{[]int{1, 1}, 1, 0},
	}
	for _, c := range cases {
		s := &Statistic{}
		for _, v := range c.values {
			s.Push(float64(v))
		}
		is.True(FuzzyEqual(s.Mean(), c.mean))
		is.True(FuzzyEqual(s.Stdev(), c.stdev))
	}
}

func TestMinMax(t *testing.T) {
	is := is.New(t)
	s := &Statistic{}
	for _, v := range []float64{4, -2, 9, 3} {
		s.Push(v)
	}
	sum := s.Summary()
	is.Equal(sum.N, 4)
	is.Equal(sum.Min, -2.0)
	is.Equal(sum.Max, 9.0)
	is.Equal(s.Last(), 3.0)
}

func TestZVal(t *testing.T) {
	is := is.New(t)
	is.True(math.Abs(ZVal(95)-1.959964) < 1e-5)
	is.True(math.Abs(ZVal(99)-2.575829) < 1e-5)
}

func TestWilsonInterval(t *testing.T) {
	is := is.New(t)
	lo, hi := WilsonInterval(50, 100, 95)
	is.True(lo < 0.5 && hi > 0.5)
	is.True(math.Abs((lo+hi)/2-0.5) < 1e-9)
	is.True(math.Abs(lo-0.4038315) < 1e-5)

	lo, hi = WilsonInterval(10, 10, 95)
	is.True(lo > 0.6)
	is.Equal(hi, 1.0)

	lo, hi = WilsonInterval(0, 0, 95)
	is.Equal(lo, 0.0)
	is.Equal(hi, 1.0)
}
