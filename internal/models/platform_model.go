package models

import "fmt"

type Platform string

const (
	PlatformX         Platform = "x"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTiktok    Platform = "tiktok"
	PlatformYoutube   Platform = "youtube"
	PlatformThreads   Platform = "threads"
	PlatformReddit    Platform = "reddit"
)

var AllPlatforms = []Platform{
	PlatformX,
	PlatformInstagram,
	PlatformLinkedIn,
	PlatformTiktok,
	PlatformYoutube,
	PlatformThreads,
	PlatformReddit,
}

func ParsePlatform(s string) (Platform, error) {
	for _, p := range AllPlatforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported platform %q", s)
}

func (p Platform) String() string {
	return string(p)
}
