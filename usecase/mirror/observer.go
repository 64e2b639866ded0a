package mirror

import "portmirror/domain/valueobject"

// Observers fans a diagnostic out to each non-nil observer in order.
type Observers []Observer

func (o Observers) Observe(d valueobject.Diagnostic) {
	for _, ob := range o {
		if ob != nil {
			ob.Observe(d)
		}
	}
}
