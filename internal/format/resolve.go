package format

import "sort"

// sameContainerAudioExt maps a video container to the audio extension most
// likely to already share that container, per spec §4.2's muxing guidance.
var sameContainerAudioExt = map[string]string{
	"mp4":  "m4a",
	"webm": "webm",
}

// Resolve selects a single Descriptor from catalog given request and
// preset. It is pure: catalog is never mutated, and identical inputs
// always produce the identical result.
func Resolve(catalog []Descriptor, req Request, preset Preset) *Descriptor {
	if d := resolveExplicit(catalog, req.ExplicitFormatSelector); d != nil {
		return d
	}

	switch req.Kind {
	case Audio:
		return resolveAudio(catalog, preset)
	default:
		return resolveVideo(catalog, preset)
	}
}

// resolveExplicit implements rule 1: the explicit selector, considering
// "/" alternatives and the first "+" component of each alternative.
func resolveExplicit(catalog []Descriptor, selector string) *Descriptor {
	if selector == "" {
		return nil
	}

	byID := make(map[string]*Descriptor, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	for _, alt := range splitTop(selector, '/') {
		first := splitTop(alt, '+')
		if len(first) == 0 {
			continue
		}
		if d, ok := byID[first[0]]; ok {
			return d
		}
	}
	return nil
}

func splitTop(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// resolveVideo implements rule 2.
func resolveVideo(catalog []Descriptor, preset Preset) *Descriptor {
	var candidates []*Descriptor
	for i := range catalog {
		if catalog[i].HasVideo() {
			candidates = append(candidates, &catalog[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.FPS != b.FPS {
			return a.FPS > b.FPS
		}
		return a.TBR > b.TBR
	})

	if preset == Worst {
		return candidates[len(candidates)-1]
	}

	limits := LimitsFor(preset)
	if limits.MaxHeight > 0 {
		for _, d := range candidates {
			if d.Height <= limits.MaxHeight {
				return d
			}
		}
	}
	return candidates[0]
}

// resolveAudio implements rule 3.
func resolveAudio(catalog []Descriptor, preset Preset) *Descriptor {
	var candidates []*Descriptor
	for i := range catalog {
		d := &catalog[i]
		if d.HasAudio() && !d.HasVideo() {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.TBR != b.TBR {
			return a.TBR > b.TBR
		}
		return a.Filesize > b.Filesize
	})

	if preset == Worst {
		return candidates[len(candidates)-1]
	}

	limits := LimitsFor(preset)
	if limits.MaxTBR > 0 {
		for _, d := range candidates {
			if d.TBR <= limits.MaxTBR {
				return d
			}
		}
	}
	return candidates[0]
}

// VideoSelectorString synthesizes the -f argument for a resolved video
// format: the id alone if already muxed, otherwise the id concatenated
// with a best-audio companion, preferring a same-container audio stream
// with a "/" fallback to a generic bestaudio.
func VideoSelectorString(selected Descriptor) string {
	if selected.Muxed() {
		return selected.ID
	}

	preferredExt, ok := sameContainerAudioExt[selected.Ext]
	if !ok {
		preferredExt, ok = sameContainerAudioExt[selected.VideoExt]
	}
	if ok {
		return selected.ID + "+bestaudio[ext=" + preferredExt + "]/" + selected.ID + "+bestaudio"
	}
	return selected.ID + "+bestaudio"
}

// AudioSelectorString synthesizes the -f argument for an audio-only
// download: the explicit selector verbatim when present, else "bestaudio".
func AudioSelectorString(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return "bestaudio"
}
