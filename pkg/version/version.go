package version

import (
	"encoding/json"
	"runtime/debug"
)

type Info struct {
	Commit   string `json:"commit"`
	Time     string `json:"time"`
	Modified bool   `json:"modified,omitempty"`
	Go       string `json:"go"`
}

// Version is the build info as json, logged at startup.
var Version = func() string {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info).String()
}()

func fromBuildInfo(info *debug.BuildInfo) Info {
	v := Info{}
	if info == nil {
		return v
	}
	v.Go = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Commit = setting.Value
		case "vcs.time":
			v.Time = setting.Value
		case "vcs.modified":
			v.Modified = setting.Value == "true"
		}
	}
	return v
}

func (v Info) String() string {
	b, _ := json.Marshal(v)
	return string(b)
}
