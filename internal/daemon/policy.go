package daemon

import (
	"devlogd/internal/domain"
	"devlogd/pkg/logrecord"
	"fmt"
	"sync/atomic"
)

// Domain validator that can be replaced while producers are running
type livePolicy struct {
	path    string
	current atomic.Pointer[domain.Validator]
}

// Builds the validator from path, or from built-in defaults when path is empty
func newLivePolicy(path string) (policy *livePolicy, err error) {
	policy = &livePolicy{path: path}
	err = policy.reload()
	if err != nil {
		policy = nil
	}
	return
}

// Re-reads the policy file. The previous validator stays active on error.
func (policy *livePolicy) reload() (err error) {
	var raw domain.Policy
	if policy.path != "" {
		raw, err = domain.LoadPolicy(policy.path)
		if err != nil {
			return
		}
	}

	validator, err := domain.New(raw)
	if err != nil {
		err = fmt.Errorf("invalid domain policy: %v", err)
		return
	}
	policy.current.Store(validator)
	return
}

func (policy *livePolicy) IsAcceptable(logType logrecord.Type, domainID uint32) (ok bool) {
	ok = policy.current.Load().IsAcceptable(logType, domainID)
	return
}

func (policy *livePolicy) Quota(domainID uint32) (quota int, ok bool) {
	quota, ok = policy.current.Load().Quota(domainID)
	return
}
