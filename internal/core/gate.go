package core

// Subview selects which main-application view an active session shows.
// Only admins may switch to SubviewAdmin; everyone defaults to SubviewApp.
type Subview string

const (
	SubviewApp   Subview = "app"
	SubviewAdmin Subview = "admin"
)

// ScreenKind enumerates the four mutually exclusive screen states.
type ScreenKind int

const (
	ScreenUnauthenticated ScreenKind = iota
	ScreenPending
	ScreenSuspended
	ScreenActive
)

func (k ScreenKind) String() string {
	switch k {
	case ScreenPending:
		return "pending"
	case ScreenSuspended:
		return "suspended"
	case ScreenActive:
		return "active"
	default:
		return "unauthenticated"
	}
}

// Screen is the resolved access state for a session.
type Screen struct {
	Kind    ScreenKind
	Admin   bool
	Subview Subview
}

// ResolveScreen maps a profile (or nil) to exactly one screen state.
//
// The approval check runs strictly before the pause check: an unapproved
// user always sees the pending screen, whatever the stored paused flag says,
// because paused is only meaningful once approval has been granted.
func ResolveScreen(p *Profile) Screen {
	if p == nil {
		return Screen{Kind: ScreenUnauthenticated, Subview: SubviewApp}
	}
	if !p.IsAdmin() && !p.Approved {
		return Screen{Kind: ScreenPending, Subview: SubviewApp}
	}
	if !p.IsAdmin() && p.Paused {
		return Screen{Kind: ScreenSuspended, Subview: SubviewApp}
	}
	return Screen{Kind: ScreenActive, Admin: p.IsAdmin(), Subview: SubviewApp}
}

// WithSubview returns a copy of the screen with the requested subview, if
// the session is allowed to show it. Non-admins are always pinned to the
// app subview.
func (s Screen) WithSubview(v Subview) Screen {
	if s.Kind != ScreenActive || !s.Admin || v != SubviewAdmin {
		s.Subview = SubviewApp
		return s
	}
	s.Subview = SubviewAdmin
	return s
}
