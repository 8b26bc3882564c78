package cfg

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/heriman22/blog-main/internal/xerrors"
)

// FillFromFile applies a flat TOML document whose keys are flag names.
// Flags set on the CLI or through PREFIX_* env vars are left alone, so
// calling it before FillFromEnv gives cli > env > file > default.
//
//	sanity-project-id = "abc123"
//	fetch-cache-ttl   = "2m"
//	rate-limit        = 10
func FillFromFile(fs *flag.FlagSet, path, prefix string, logf func(string, ...any)) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Wrapf(err, "read config file %s", path)
	}
	var values map[string]any
	if err := toml.Unmarshal(raw, &values); err != nil {
		return xerrors.Wrapf(err, "parse config file %s", path)
	}

	explicit := explicitFlags(fs)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		f := fs.Lookup(name)
		if f == nil {
			return xerrors.Newf("config file %s: unknown key %q", path, name)
		}
		if name == "config" {
			return xerrors.Newf("config file %s: key %q is not allowed", path, name)
		}
		if explicit[name] {
			continue
		}
		if _, ok := os.LookupEnv(envKey(prefix, name)); ok {
			if logf != nil {
				logf("flag -%s: env %s overrides config file", name, envKey(prefix, name))
			}
			continue
		}
		v, err := scalar(values[name])
		if err != nil {
			return xerrors.Wrapf(err, "config file %s: key %q", path, name)
		}
		if err := fs.Set(name, v); err != nil {
			return xerrors.Wrapf(err, "config file %s: key %q", path, name)
		}
	}
	return nil
}

func scalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool, int64, float64:
		return fmt.Sprint(x), nil
	}
	return "", xerrors.Newf("unsupported value type %T", v)
}
