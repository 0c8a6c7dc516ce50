package processor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// interpolator reconstructs flagged channels from the remaining channels of
// the same epoch. Each target channel is modelled as an affine combination of
// its donors, fitted by least squares over reference epochs where every
// channel is clean. Without a usable fit the donor mean is used instead.
type interpolator struct {
	reference []Epoch
	fits      map[string][]float64
}

func newInterpolator(reference []Epoch) *interpolator {
	return &interpolator{
		reference: reference,
		fits:      make(map[string][]float64),
	}
}

// repair returns a copy of ep with every LabelInterpolated channel rebuilt
// from the LabelGood channels. Epochs without such labels are returned as is.
func (ip *interpolator) repair(ep Epoch, labels []int) Epoch {
	var targets, donors []int
	for ch, l := range labels {
		switch l {
		case LabelInterpolated:
			targets = append(targets, ch)
		case LabelGood:
			donors = append(donors, ch)
		}
	}
	if len(targets) == 0 || len(donors) == 0 {
		return ep
	}

	data := make([][]float64, len(ep.Data))
	copy(data, ep.Data)
	for _, target := range targets {
		coef := ip.coefficients(target, donors)
		row := make([]float64, len(ep.Data[target]))
		for t := range row {
			v := coef[0]
			for j, d := range donors {
				v += coef[j+1] * ep.Data[d][t]
			}
			row[t] = v
		}
		data[target] = row
	}
	return Epoch{Index: ep.Index, Data: data}
}

// coefficients returns [intercept, w_1..w_d] for target given donors
func (ip *interpolator) coefficients(target int, donors []int) []float64 {
	key := fmt.Sprint(target, donors)
	if coef, ok := ip.fits[key]; ok {
		return coef
	}

	coef := ip.fit(target, donors)
	if coef == nil {
		coef = make([]float64, len(donors)+1)
		for j := range donors {
			coef[j+1] = 1.0 / float64(len(donors))
		}
	}
	ip.fits[key] = coef
	return coef
}

// fit solves the least-squares regression, or returns nil when the
// reference data cannot support it.
func (ip *interpolator) fit(target int, donors []int) []float64 {
	rows := 0
	for _, ep := range ip.reference {
		rows += len(ep.Data[target])
	}
	cols := len(donors) + 1
	if rows <= cols {
		return nil
	}

	a := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)
	r := 0
	for _, ep := range ip.reference {
		for t, y := range ep.Data[target] {
			a.Set(r, 0, 1)
			for j, d := range donors {
				a.Set(r, j+1, ep.Data[d][t])
			}
			b.SetVec(r, y)
			r++
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil
	}
	coef := make([]float64, cols)
	for i := range coef {
		coef[i] = x.AtVec(i)
		if math.IsNaN(coef[i]) || math.IsInf(coef[i], 0) {
			return nil
		}
	}
	return coef
}
