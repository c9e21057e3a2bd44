package synth

// ----- Program ----- //

// FilterType ...
type FilterType int

const (
	FilterNone FilterType = iota
	FilterLowpass
	FilterHighpass
)

// Filter is part of the program layout but is not processed yet.
type Filter struct {
	Type   FilterType
	Cutoff float64
}

// Operator is one oscillator of a program.
type Operator struct {
	Volume     Envelope
	Pitch      Envelope // octaves, applied as 2^value
	FreqOffset float64  // Hz added to the note frequency
	FreqRatio  float64
	Noise      float64 // 0-1
	Output     float64
}

// Program is the static patch data selectable per channel.
//
// Matrix[k][j] is the depth by which operator k modulates the phase of operator j.
type Program struct {
	Operators    [OperatorCount]Operator
	Filters      [FilterCount]Filter
	Matrix       [OperatorCount][OperatorCount]float64
	FilterMatrix [OperatorCount][FilterCount]float64

	// cached by refresh
	sustainSamples uint64
	releaseSamples uint64
}

// SustainSamples is the longest time to reach sustain across volume envelopes.
func (p *Program) SustainSamples() uint64 {
	return p.sustainSamples
}

// ReleaseSamples is the longest release across volume envelopes.
func (p *Program) ReleaseSamples() uint64 {
	return p.releaseSamples
}

func (p *Program) refresh(sampleRate float64) {
	p.sustainSamples = 0
	p.releaseSamples = 0
	for i := range p.Operators {
		e := &p.Operators[i].Volume
		if e.ReleaseTime > 0 {
			if n := uint64(e.ReleaseTime * sampleRate); n > p.releaseSamples {
				p.releaseSamples = n
			}
		}
		for _, point := range e.Points {
			if point.Time > 0 {
				if n := uint64(point.Time * sampleRate); n > p.sustainSamples {
					p.sustainSamples = n
				}
			}
		}
	}
}
