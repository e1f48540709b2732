package status

import "github.com/Veraticus/idlewatch/pkg/notification"

// Reporter is a notifier that shows delivery progress on the indicator
// while passing notifications through.
type Reporter struct {
	indicator  *Indicator
	underlying notification.Notifier
}

// NewReporter wraps underlying. indicator may be nil.
func NewReporter(indicator *Indicator, underlying notification.Notifier) *Reporter {
	return &Reporter{
		indicator:  indicator,
		underlying: underlying,
	}
}

// Ensure Reporter implements Notifier
var _ notification.Notifier = (*Reporter)(nil)

// Send implements notification.Notifier
func (r *Reporter) Send(n notification.Notification) error {
	r.report(StatusSending)
	if err := r.underlying.Send(n); err != nil {
		r.report(StatusFailed)
		return err
	}
	r.report(StatusSuccess)
	return nil
}

func (r *Reporter) report(status Status) {
	if r.indicator != nil {
		r.indicator.SetStatus(status)
	}
}
