package terrain

import (
	"flag"
	"fmt"
	"sort"
	"strings"
)

// Bind attaches the configuration to the provided FlagSet. Erosion constants
// are set with the repeatable -set key=value flag and applied by Apply.
func (c *Config) Bind(fs *flag.FlagSet, set *Overrides) {
	fs.IntVar(&c.MapSize, "size", c.MapSize, "heightfield edge length in cells")
	fs.StringVar(&c.Source, "source", c.Source, "heightfield source: fbm or midpoint")
	fs.TextVar(&c.Variant, "variant", c.Variant, "fbm variant: plain, ridged or combined")
	fs.TextVar(&c.Basis, "basis", c.Basis, "noise basis: simplex or perlin")
	fs.IntVar(&c.Noise.Octaves, "octaves", c.Noise.Octaves, "noise octaves")
	fs.Float64Var(&c.Noise.Scale, "scale", c.Noise.Scale, "noise scale in cells")
	fs.Float64Var(&c.Noise.Seed, "seed", c.Noise.Seed, "noise seed")
	fs.Int64Var(&c.FixedPointScalar, "fixed-point", c.FixedPointScalar, "normalize with fixed-point keys of this scale; 0 is exact")
	fs.Float64Var(&c.InitialHardness, "hardness", c.InitialHardness, "initial cell hardness in (0, 1]")
	fs.IntVar(&c.Iterations, "iterations", c.Iterations, "erosion iterations")
	fs.TextVar(&c.Mode, "mode", c.Mode, "buffering: double-buffer or in-place")
	fs.TextVar(&c.Pipeline, "pipeline", c.Pipeline, "erosion model: reference or simplified")
	fs.IntVar(&c.Workers, "workers", c.Workers, "goroutines per stage; 0 uses every CPU")
	fs.IntVar(&c.ProgressEvery, "progress", c.ProgressEvery, "log progress every n iterations")
	fs.IntVar(&c.Resolution, "resolution", c.Resolution, "output resolution; 0 keeps -size")
	if set != nil {
		fs.Var(set, "set", "erosion constant as key=value, repeatable ("+strings.Join(c.Erosion.Keys(), ", ")+")")
	}
}

// Overrides collects -set key=value pairs.
type Overrides map[string]string

func (o *Overrides) String() string {
	if o == nil || len(*o) == 0 {
		return ""
	}
	var pairs []string
	for k, v := range *o {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (o *Overrides) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	if *o == nil {
		*o = Overrides{}
	}
	(*o)[strings.TrimSpace(key)] = strings.TrimSpace(value)
	return nil
}

// Apply folds the overrides into the erosion constants.
func (c *Config) Apply(o Overrides) error {
	params, err := c.Erosion.FromMap(o)
	if err != nil {
		return err
	}
	c.Erosion = params
	return nil
}
