package version

import "fmt"

// Set at build time with -ldflags "-X github.com/gowso/bizsites/pkg/version.Tag=..."
var (
	Tag       = "v0.0.0-dev"
	GitCommit = "HEAD"
)

type Version struct {
	Tag    string `json:"tag"`
	Commit string `json:"commit"`
}

func Get() Version {
	return Version{
		Tag:    Tag,
		Commit: GitCommit,
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%s (%s)", v.Tag, v.Commit)
}
