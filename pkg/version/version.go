package version

import (
	"fmt"
)

var (
	Tag    = "v0.0.0-dev"
	Commit = "HEAD"
)

type Version struct {
	Tag    string `json:"tag,omitempty"`
	Commit string `json:"commit,omitempty"`
}

func (v Version) String() string {
	if len(v.Commit) < 12 {
		return fmt.Sprintf("%s+%s", v.Tag, v.Commit)
	}
	return fmt.Sprintf("%s+%s", v.Tag, v.Commit[:8])
}

func Get() Version {
	return Version{
		Tag:    Tag,
		Commit: Commit,
	}
}
