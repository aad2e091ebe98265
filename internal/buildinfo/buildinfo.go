package buildinfo

import "runtime/debug"

// Set with -ldflags "-X visitroute/internal/buildinfo.Version=...".
var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info reports the linked-in version, falling back to VCS stamps the Go
// toolchain embeds when no ldflags were given.
func Info() map[string]string {
    commit, builtAt := Commit, BuiltAt
    goVersion := ""
    if bi, ok := debug.ReadBuildInfo(); ok {
        goVersion = bi.GoVersion
        for _, s := range bi.Settings {
            switch s.Key {
            case "vcs.revision":
                if commit == "" { commit = s.Value }
            case "vcs.time":
                if builtAt == "" { builtAt = s.Value }
            }
        }
    }
    return map[string]string{
        "version": Version,
        "commit":  commit,
        "builtAt": builtAt,
        "go":      goVersion,
    }
}
