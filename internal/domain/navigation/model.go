package navigation

import "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"

// MaxBottomItems caps the bottom bar on narrow screens.
const MaxBottomItems = 5

// Item is a navigation entry gated by an optional capability.
//
// Items with an empty Capability are visible to every authenticated user.
type Item struct {
	ID          string
	Label       string
	Description string
	Href        string
	Capability  account.Capability
}

// VisibleTo reports whether the item is shown to a user for whom allow grants capabilities.
// INVARIANT: i is not mutated
func (i Item) VisibleTo(allow func(account.Capability) bool) bool {
	if i.Capability == "" {
		return true
	}
	return allow != nil && allow(i.Capability)
}

// Visible filters items through allow, preserving order, and truncates to limit.
// A limit <= 0 means no truncation.
func Visible(items []Item, allow func(account.Capability) bool, limit int) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.VisibleTo(allow) {
			out = append(out, it)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DefaultItems returns the bottom navigation bar.
func DefaultItems() []Item {
	return []Item{
		{ID: "dashboard", Label: "Accueil", Href: "/"},
		{ID: "sessions", Label: "Séances", Href: "/sessions", Capability: account.ManageSessions},
		{ID: "attendance", Label: "Présences", Href: "/attendance", Capability: account.ManageAttendance},
		{ID: "events", Label: "Événements", Href: "/events", Capability: account.ManageEvents},
		{ID: "statistics", Label: "Stats", Href: "/statistics", Capability: account.ViewStatistics},
	}
}

// QuickActions returns the dashboard shortcut cards.
func QuickActions() []Item {
	return []Item{
		{ID: "sessions", Label: "Séances", Description: "Gérer les séances spirituelles", Href: "/sessions", Capability: account.ManageSessions},
		{ID: "attendance", Label: "Présences", Description: "Enregistrer les présences", Href: "/attendance", Capability: account.ManageAttendance},
		{ID: "events", Label: "Événements", Description: "Organiser des événements", Href: "/events", Capability: account.ManageEvents},
		{ID: "statistics", Label: "Statistiques", Description: "Voir les rapports", Href: "/statistics", Capability: account.ViewStatistics},
	}
}

// Active returns the ID of the item whose Href equals path, or "dashboard".
func Active(items []Item, path string) string {
	for _, it := range items {
		if it.Href == path {
			return it.ID
		}
	}
	return "dashboard"
}
