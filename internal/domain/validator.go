// Decides whether a record's (type, domain) pair comes from an acceptable source
package domain

import (
	"devlogd/pkg/logrecord"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAppDomainMax uint32 = 0xFFFF
	DefaultRangeStart   uint32 = 0xD000000
	DefaultRangeEnd     uint32 = 0xD0FFFFF

	subDomainMask     uint32 = 0xFF
	subDomainWildcard uint32 = 0xFF
)

// Loads a YAML policy file
func LoadPolicy(path string) (policy Policy, err error) {
	policyFile, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read domain policy file: %v", err)
		return
	}

	err = yaml.Unmarshal(policyFile, &policy)
	if err != nil {
		err = fmt.Errorf("invalid domain policy syntax in '%s': %v", path, err)
		return
	}
	return
}

// Builds a validator, filling defaults for anything the policy leaves unset
func New(policy Policy) (new *Validator, err error) {
	new = &Validator{
		appDomainMax: DefaultAppDomainMax,
		exact:        make(map[uint32]Entry),
		wildcard:     make(map[uint32]Entry),
	}
	if policy.AppDomainMax != nil {
		new.appDomainMax = *policy.AppDomainMax
	}

	for _, rng := range policy.Ranges {
		if rng.Start > rng.End {
			err = fmt.Errorf("invalid domain range 0x%X-0x%X: start after end", rng.Start, rng.End)
			return
		}
		new.ranges = append(new.ranges, rng)
	}
	if len(new.ranges) == 0 {
		new.ranges = []Range{{Start: DefaultRangeStart, End: DefaultRangeEnd}}
	}

	for _, entry := range policy.Domains {
		if entry.Quota < 0 {
			err = fmt.Errorf("domain 0x%X: negative quota %d", entry.ID, entry.Quota)
			return
		}
		if entry.ID&subDomainMask == subDomainWildcard {
			new.wildcard[entry.ID&^subDomainMask] = entry
		} else {
			new.exact[entry.ID] = entry
		}
	}
	return
}

// Reports whether records of this type may be accepted from this domain
func (validator *Validator) IsAcceptable(logType logrecord.Type, domainID uint32) (ok bool) {
	switch logType {
	case logrecord.TypeKmsg:
		ok = true
		return
	case logrecord.TypeApp:
		ok = domainID <= validator.appDomainMax
		return
	}

	if !validator.inRange(domainID) {
		return
	}

	// No registrations means the ranges alone decide
	if len(validator.exact) == 0 && len(validator.wildcard) == 0 {
		ok = true
		return
	}
	_, ok = validator.lookup(domainID)
	return
}

// Per-window ceiling configured for the domain, if any
func (validator *Validator) Quota(domainID uint32) (quota int, ok bool) {
	entry, found := validator.lookup(domainID)
	if !found || entry.Quota == 0 {
		return
	}
	quota, ok = entry.Quota, true
	return
}

// Registered name of the domain, empty when unknown
func (validator *Validator) Name(domainID uint32) (name string) {
	entry, found := validator.lookup(domainID)
	if found {
		name = entry.Name
	}
	return
}

func (validator *Validator) inRange(domainID uint32) (ok bool) {
	for _, rng := range validator.ranges {
		if domainID >= rng.Start && domainID <= rng.End {
			ok = true
			return
		}
	}
	return
}

// Exact registrations win over sub-domain wildcards
func (validator *Validator) lookup(domainID uint32) (entry Entry, ok bool) {
	entry, ok = validator.exact[domainID]
	if ok {
		return
	}
	entry, ok = validator.wildcard[domainID&^subDomainMask]
	return
}
