// Package shell holds the per-client application state: the session guard, the print-mode
// flag and the client's persisted entries.
package shell

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/printmode"
	"github.com/trezcool/masomoweb/core/session"
	"github.com/trezcool/masomoweb/core/user"
)

// NavItem is an entry of the layout navigation. Roles restricts who sees it (everyone if empty).
type NavItem struct {
	Path  string
	Title string
	Roles []string
}

var (
	staffRoles = append(append([]string(nil), user.AdminRoles...), user.RoleTeacher)

	Navigation = []NavItem{
		{Path: "/dashboard", Title: "Dashboard"},
		{Path: "/students", Title: "Students", Roles: staffRoles},
		{Path: "/add-student", Title: "Add student", Roles: user.AdminRoles},
		{Path: "/staff", Title: "Staff", Roles: user.AdminRoles},
		{Path: "/fee-collection", Title: "Fee collection", Roles: user.AdminRoles},
		{Path: "/attendance", Title: "Attendance", Roles: staffRoles},
		{Path: "/timetable", Title: "Timetable"},
		{Path: "/examinations", Title: "Examinations", Roles: staffRoles},
		{Path: "/reports", Title: "Reports", Roles: staffRoles},
	}
)

// Layout is everything the layout template needs to render its chrome.
type Layout struct {
	ShowNavigation bool
	SidebarOpen    bool
	Authenticated  bool
	Profile        user.Profile
	Nav            []NavItem
}

// Shell is the application instance of a single client.
type Shell struct {
	ClientID  string
	Storage   core.Storage
	Guard     *session.Guard
	PrintMode *printmode.Coordinator

	mountOnce sync.Once
	mu        sync.Mutex
	redirect  string
	lastSeen  time.Time
}

// New creates the shell of `clientID`. Forced navigations of its guard are kept until TakeRedirect.
func New(clientID string, store core.Storage, opts ...session.Option) *Shell {
	s := &Shell{
		ClientID:  clientID,
		Storage:   store,
		PrintMode: printmode.New(),
	}
	opts = append(append([]session.Option(nil), opts...), session.WithNavigator(s.navigate))
	s.Guard = session.NewGuard(store, opts...)
	return s
}

// Mount mounts the guard, once.
func (s *Shell) Mount(ctx context.Context) {
	s.mountOnce.Do(func() { s.Guard.Mount(ctx) })
}

func (s *Shell) navigate(route string, _ session.Reason) {
	// back on the entry route, the app starts over: no print modal is open
	if route == session.EntryRoute {
		s.PrintMode.Set(false)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = route
}

// TakeRedirect returns, and forgets, the pending forced navigation.
func (s *Shell) TakeRedirect() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	route := s.redirect
	s.redirect = ""
	return route, route != ""
}

// Token returns the persisted credential, if any.
func (s *Shell) Token(ctx context.Context) (string, bool) {
	token, err := s.Storage.Get(ctx, core.KeyToken)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// Unauthorized evicts the session after the API rejected its credential.
func (s *Shell) Unauthorized(ctx context.Context) {
	s.Guard.Evict(ctx, session.ReasonRejected)
}

// Profile returns the signed in user (zero when not authenticated).
func (s *Shell) Profile() user.Profile {
	claims, ok := s.Guard.Claims()
	if !ok {
		return user.Profile{}
	}
	return claims.Profile()
}

// SidebarOpen reads the sidebar preference; it defaults to open.
func (s *Shell) SidebarOpen(ctx context.Context) bool {
	val, err := s.Storage.Get(ctx, core.KeySidebarOpen)
	if err != nil {
		return true
	}
	open, err := strconv.ParseBool(val)
	if err != nil {
		return true
	}
	return open
}

func (s *Shell) SetSidebarOpen(ctx context.Context, open bool) error {
	if err := s.Storage.Set(ctx, core.KeySidebarOpen, strconv.FormatBool(open)); err != nil {
		return errors.Wrap(err, "saving sidebar preference")
	}
	return nil
}

func (s *Shell) Layout(ctx context.Context) Layout {
	prof := s.Profile()
	lyt := Layout{
		ShowNavigation: printmode.ShowNavigation(s.PrintMode.Read()),
		SidebarOpen:    s.SidebarOpen(ctx),
		Authenticated:  s.Guard.Authenticated(),
		Profile:        prof,
	}
	if lyt.Authenticated {
		for _, item := range Navigation {
			if prof.HasAnyRole(item.Roles...) {
				lyt.Nav = append(lyt.Nav, item)
			}
		}
	}
	return lyt
}

// Allowed reports whether the signed in user may open `path`. Paths outside the navigation are allowed.
func (s *Shell) Allowed(path string) bool {
	prof := s.Profile()
	for _, item := range Navigation {
		if item.Path == path {
			return prof.HasAnyRole(item.Roles...)
		}
	}
	return true
}

func (s *Shell) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Shell) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
