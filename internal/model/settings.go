package model

import "time"

// Settings drive the rotation scheduler and fetch path. A Settings value is
// owned by the presentation controller; surfaces change it through
// SettingsPatch so unrelated knobs survive a partial update.
type Settings struct {
	SlideDuration   time.Duration
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
}

// DefaultSettings returns the engine defaults.
func DefaultSettings() Settings {
	return Settings{
		SlideDuration:   DefaultSlideDuration,
		RefreshInterval: DefaultRefreshInterval,
		CacheTTL:        DefaultCacheTTL,
		MaxRetries:      DefaultMaxRetries,
		RetryBaseDelay:  DefaultRetryBaseDelay,
	}
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	SlideDuration   *time.Duration
	RefreshInterval *time.Duration
	CacheTTL        *time.Duration
	MaxRetries      *int
	RetryBaseDelay  *time.Duration
}

// Apply merges the patch into s and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SlideDuration != nil && *p.SlideDuration > 0 {
		s.SlideDuration = *p.SlideDuration
	}
	if p.RefreshInterval != nil && *p.RefreshInterval > 0 {
		s.RefreshInterval = *p.RefreshInterval
	}
	if p.CacheTTL != nil && *p.CacheTTL > 0 {
		s.CacheTTL = *p.CacheTTL
	}
	if p.MaxRetries != nil && *p.MaxRetries >= 0 {
		s.MaxRetries = *p.MaxRetries
	}
	if p.RetryBaseDelay != nil && *p.RetryBaseDelay > 0 {
		s.RetryBaseDelay = *p.RetryBaseDelay
	}
	return s
}

// PatchFromTenant converts remote per-tenant settings into a patch,
// ignoring unset (zero) values.
func PatchFromTenant(ts TenantSettings) SettingsPatch {
	var p SettingsPatch
	if ts.SlideSeconds > 0 {
		d := time.Duration(ts.SlideSeconds) * time.Second
		p.SlideDuration = &d
	}
	if ts.RefreshSeconds > 0 {
		d := time.Duration(ts.RefreshSeconds) * time.Second
		p.RefreshInterval = &d
	}
	if ts.CacheTTLSecs > 0 {
		d := time.Duration(ts.CacheTTLSecs) * time.Second
		p.CacheTTL = &d
	}
	return p
}
