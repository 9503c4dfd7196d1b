package analysis

import (
	"fmt"
	"strings"
)

// NoAdjustmentSetError reports that no set of covariates can block all
// backdoor paths between the treatments and outcomes.
type NoAdjustmentSetError struct {
	Treatments []string
	Outcomes   []string
	Reason     string
}

func (e *NoAdjustmentSetError) Error() string {
	return fmt.Sprintf("no adjustment set for treatments [%s] and outcomes [%s]: %s",
		strings.Join(e.Treatments, ", "), strings.Join(e.Outcomes, ", "), e.Reason)
}
