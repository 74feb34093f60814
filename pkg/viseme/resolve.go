package viseme

// MouthParams is a renderable mouth pose. Every field is in [0, 1].
type MouthParams struct {
	Open   float64 `json:"open"`   // vertical opening
	Spread float64 `json:"spread"` // horizontal lip spread
	Round  float64 `json:"round"`  // lip rounding
	Teeth  float64 `json:"teeth"`  // teeth visibility
	Tongue float64 `json:"tongue"` // tongue height
}

var presets = map[Category]MouthParams{
	Neutral: {Open: 0.05, Spread: 0.15, Round: 0.05, Teeth: 0.0, Tongue: 0.2},
	BMP:     {Open: 0.0, Spread: 0.10, Round: 0.05, Teeth: 0.0, Tongue: 0.2},
	CORE:    {Open: 0.10, Spread: 0.20, Round: 0.05, Teeth: 0.0, Tongue: 0.3},
	AEI:     {Open: 0.35, Spread: 0.60, Round: 0.05, Teeth: 0.8, Tongue: 0.4},
	EE:      {Open: 0.30, Spread: 0.65, Round: 0.05, Teeth: 0.8, Tongue: 0.4},
	O:       {Open: 0.45, Spread: 0.15, Round: 0.60, Teeth: 0.0, Tongue: 0.3},
	U:       {Open: 0.30, Spread: 0.10, Round: 0.70, Teeth: 0.0, Tongue: 0.3},
	CHJSH:   {Open: 0.20, Spread: 0.25, Round: 0.10, Teeth: 0.8, Tongue: 0.5},
	FV:      {Open: 0.12, Spread: 0.15, Round: 0.05, Teeth: 0.9, Tongue: 0.2},
	TH:      {Open: 0.18, Spread: 0.20, Round: 0.05, Teeth: 0.9, Tongue: 0.7},
	R:       {Open: 0.14, Spread: 0.20, Round: 0.06, Teeth: 0.0, Tongue: 0.6},
	L:       {Open: 0.14, Spread: 0.20, Round: 0.06, Teeth: 0.0, Tongue: 0.55},
	QW:      {Open: 0.24, Spread: 0.18, Round: 0.45, Teeth: 0.0, Tongue: 0.3},
}

var images = map[Category]string{
	AEI:     "/mouth/a_e_i.png",
	FV:      "/mouth/f_v.png",
	L:       "/mouth/l.png",
	QW:      "/mouth/q_w.png",
	CHJSH:   "/mouth/ch_j_sh.png",
	U:       "/mouth/u.png",
	R:       "/mouth/r.png",
	CORE:    "/mouth/c_d_g_k_n_s_t_x_y_z.png",
	BMP:     "/mouth/b_m_p.png",
	TH:      "/mouth/th.png",
	EE:      "/mouth/ee.png",
	O:       "/mouth/o.png",
	Neutral: "/mouth/neutral.png",
}

// Resolve returns the steady-state mouth pose for c. Values are targets: the
// caller owns any easing between successive poses. A category outside the
// known set resolves as [Neutral].
func Resolve(c Category) MouthParams {
	if p, ok := presets[c]; ok {
		return p
	}
	return presets[Neutral]
}

// Image returns the sprite path for c, falling back to the neutral sprite.
func Image(c Category) string {
	if img, ok := images[c]; ok {
		return img
	}
	return images[Neutral]
}

// Lerp interpolates from a toward b by alpha, clamped to [0, 1]. Renderers use
// it to ease between the previous and the newly resolved pose.
func Lerp(a, b MouthParams, alpha float64) MouthParams {
	switch {
	case alpha <= 0:
		return a
	case alpha >= 1:
		return b
	}
	mix := func(x, y float64) float64 { return x + (y-x)*alpha }
	return MouthParams{
		Open:   mix(a.Open, b.Open),
		Spread: mix(a.Spread, b.Spread),
		Round:  mix(a.Round, b.Round),
		Teeth:  mix(a.Teeth, b.Teeth),
		Tongue: mix(a.Tongue, b.Tongue),
	}
}
