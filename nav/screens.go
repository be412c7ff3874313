package nav

import "fmt"

// Screen names a navigable screen.
type Screen string

const (
	Login          Screen = "Login"
	Signup         Screen = "Signup"
	ForgetPassword Screen = "ForgetPassword"
	Tabs           Screen = "Tabs"

	// Reachable only inside Tabs.
	Feed    Screen = "Feed"
	Profile Screen = "Profile"
	Setting Screen = "Setting"
)

// TabScreens are the tabs shown by the Tabs screen, in order.
var TabScreens = []Screen{Feed, Profile, Setting}

// ScreenSet is the ordered set of screens reachable from the navigation root
// in one mode, with one entry screen.
type ScreenSet struct {
	Mode    Mode
	Screens []Screen
	Entry   Screen
}

// Build returns the screen set for a mode.
func Build(m Mode) ScreenSet {
	switch m {
	case Authenticated:
		return ScreenSet{Mode: m, Screens: []Screen{Tabs}, Entry: Tabs}
	case Unauthenticated:
		return ScreenSet{Mode: m, Screens: []Screen{Login, Signup, ForgetPassword}, Entry: Login}
	default:
		panic(fmt.Sprintf("nav: no screen set for mode %d", m))
	}
}

// Contains reports whether s is reachable in the set.
func (set ScreenSet) Contains(s Screen) bool {
	for _, candidate := range set.Screens {
		if candidate == s {
			return true
		}
	}
	return false
}
