package render

import "montage/model"

// Effect types the compositor evaluates. Anything else is carried
// through the model and ignored at draw time.
const (
	EffectOpacity = "opacity"
	EffectFadeIn  = "fadeIn"
	EffectFadeOut = "fadeOut"
)

// effectOpacityAt resolves the opacity contribution of a clip's
// enabled effects at local clip time, as a multiplier in [0, 1].
// Effects stack multiplicatively.
func effectOpacityAt(clip *model.Clip, local float64) float64 {
	mult := 1.0
	for i := range clip.Effects {
		e := &clip.Effects[i]
		if !e.Enabled {
			continue
		}
		switch e.Type {
		case EffectOpacity:
			mult *= clampUnit(effectParam(e, "amount", 1))
		case EffectFadeIn:
			if d := effectParam(e, "duration", 0); d > 0 && local < d {
				mult *= clampUnit(local / d)
			}
		case EffectFadeOut:
			if d := effectParam(e, "duration", 0); d > 0 {
				if rem := clip.Duration - local; rem < d {
					mult *= clampUnit(rem / d)
				}
			}
		}
	}
	return mult
}

func effectParam(e *model.Effect, name string, fallback float64) float64 {
	if v, ok := e.Params[name]; ok {
		return v
	}
	return fallback
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
