package settings

// Fresh copy of the built-in filter settings: profanity and spam filtering on, URL blocking off.
func DefaultFilterSettings() FilterSettings {
	return FilterSettings{
		ProfanityEnabled:       true,
		SpamEnabled:            true,
		URLBlockingEnabled:     false,
		UseDefaultProfanity:    true,
		UseDefaultSpamPatterns: true,
		SeverityAction:         DefaultSeverityActions(),
		AutoTimeout:            false,
		TimeoutDuration:        300,
		LogViolations:          true,
		SpamThreshold:          DefaultSpamThreshold,
	}
}

func DefaultSeverityActions() map[Severity]Action {
	return map[Severity]Action{
		SeverityMild:     ActionWarn,
		SeverityModerate: ActionCensor,
		SeveritySevere:   ActionBlock,
	}
}

func DefaultURLSettings() URLSettings {
	return URLSettings{
		BlockShorteners:   true,
		AllowedDomains:    []string{},
		BlockedDomains:    []string{},
		TrustedShorteners: []string{},
	}
}

// Overlays stored overrides on top of defaults. Pure: neither argument is modified, and the result shares no maps or slices with them. A nil overrides pointer yields a copy of the defaults.
//
// A non-empty SeverityAction override is merged key-by-key, so a community can remap one severity without restating the others.
func Merge(defaults FilterSettings, o *Overrides) FilterSettings {
	out := defaults
	out.SeverityAction = make(map[Severity]Action, len(defaults.SeverityAction))
	for k, v := range defaults.SeverityAction {
		out.SeverityAction[k] = v
	}
	if defaults.StrikePolicy != nil {
		out.StrikePolicy = append([]byte(nil), defaults.StrikePolicy...)
	}
	if o == nil {
		return out
	}

	setBool(&out.ProfanityEnabled, o.ProfanityEnabled)
	setBool(&out.SpamEnabled, o.SpamEnabled)
	setBool(&out.URLBlockingEnabled, o.URLBlockingEnabled)
	setBool(&out.UseDefaultProfanity, o.UseDefaultProfanity)
	setBool(&out.UseDefaultSpamPatterns, o.UseDefaultSpamPatterns)
	setBool(&out.AutoTimeout, o.AutoTimeout)
	setBool(&out.LogViolations, o.LogViolations)
	if o.TimeoutDuration != nil && *o.TimeoutDuration >= 0 {
		out.TimeoutDuration = *o.TimeoutDuration
	}
	if o.SpamThreshold != nil && *o.SpamThreshold > 0 {
		out.SpamThreshold = *o.SpamThreshold
	}
	for k, v := range o.SeverityAction {
		if k.Valid() && v.Valid() {
			out.SeverityAction[k] = v
		}
	}
	if len(o.StrikePolicy) > 0 {
		out.StrikePolicy = append([]byte(nil), o.StrikePolicy...)
	}
	return out
}

// Fills in nil slices so serialized settings are stable.
func NormalizeURLSettings(u URLSettings) URLSettings {
	if u.AllowedDomains == nil {
		u.AllowedDomains = []string{}
	}
	if u.BlockedDomains == nil {
		u.BlockedDomains = []string{}
	}
	if u.TrustedShorteners == nil {
		u.TrustedShorteners = []string{}
	}
	return u
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
