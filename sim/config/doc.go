// Package config loads named simulation presets from a directory of JSON
// files.
//
// A preset file looks like:
//
//	{
//	  "name": "Classic",
//	  "description": "The smallest accepted terrain",
//	  "airports": 3,
//	  "clouds": 4,
//	  "height": 10,
//	  "width": 10,
//	  "seed": 42
//	}
//
// The seed is optional. Presets are referenced by file name without the
// .json extension. The default preset is classic when present, otherwise the
// first valid preset in the directory, otherwise a built-in minimal preset.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	preset, err := manager.LoadPreset("crowded")
package config
