// Package model defines the data structures used throughout the application.
//
// Entities mirror the persisted tables one to one. Per-platform stats types
// (stats.go) are the typed shape produced right after an upstream response
// is parsed; nothing downstream of internal/upstream sees raw JSON.
package model

import (
	"fmt"
	"net/url"
	"strings"
)

// Platform identifies an external coding platform.
type Platform string

const (
	PlatformCodeforces Platform = "codeforces"
	PlatformLeetCode   Platform = "leetcode"
	PlatformGitHub     Platform = "github"
	PlatformAtCoder    Platform = "atcoder"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{PlatformGitHub, PlatformCodeforces, PlatformLeetCode, PlatformAtCoder}

// ParsePlatform accepts any casing of a known platform name.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformCodeforces, PlatformLeetCode, PlatformGitHub, PlatformAtCoder:
		return true
	}
	return false
}

func (p Platform) String() string { return string(p) }

// ProfileURL returns the public profile page of handle on this platform.
func (p Platform) ProfileURL(handle string) string {
	h := url.PathEscape(handle)
	switch p {
	case PlatformCodeforces:
		return "https://codeforces.com/profile/" + h
	case PlatformLeetCode:
		return "https://leetcode.com/u/" + h
	case PlatformGitHub:
		return "https://github.com/" + h
	case PlatformAtCoder:
		return "https://atcoder.jp/users/" + h
	}
	return ""
}
