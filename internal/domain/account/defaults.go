package account

// DefaultPermissions returns the permission set granted to a new user of the given role.
// Unknown roles get no permissions.
func DefaultPermissions(role string) []Permission {
	switch role {
	case RoleAdmin:
		return []Permission{
			{ID: "1", Name: ManageSessions, Description: "Gérer les séances", Enabled: true},
			{ID: "2", Name: ManageAttendance, Description: "Gérer les présences", Enabled: true},
			{ID: "3", Name: ViewStatistics, Description: "Voir les statistiques", Enabled: true},
			{ID: "4", Name: ManageMembers, Description: "Gérer les membres", Enabled: true},
			{ID: "5", Name: ManageEvents, Description: "Gérer les événements", Enabled: true},
		}
	case RolePermanent:
		return []Permission{
			{ID: "1", Name: ManageSessions, Description: "Gérer les séances", Enabled: true},
			{ID: "2", Name: ManageAttendance, Description: "Gérer les présences", Enabled: true},
			{ID: "6", Name: Discipleship, Description: "Discipolat", Enabled: true},
			{ID: "5", Name: ManageEvents, Description: "Gérer les événements", Enabled: true},
		}
	case RoleStandard:
		return []Permission{
			{ID: "7", Name: ViewSessions, Description: "Voir les séances", Enabled: true},
			{ID: "8", Name: ViewEvents, Description: "Voir les événements", Enabled: true},
		}
	default:
		return nil
	}
}

// DemoUsers returns the known-users table used by the demo credential verifier
// and by account seeding.
func DemoUsers() []User {
	return []User{
		{
			ID:          "1",
			Email:       "admin@communaute.fr",
			Name:        "Administrateur",
			Role:        RoleAdmin,
			Permissions: DefaultPermissions(RoleAdmin),
		},
		{
			ID:          "2",
			Email:       "permanent@communaute.fr",
			Name:        "Permanent",
			Role:        RolePermanent,
			Permissions: DefaultPermissions(RolePermanent),
		},
		{
			ID:          "3",
			Email:       "membre@communaute.fr",
			Name:        "Membre Standard",
			Role:        RoleStandard,
			Permissions: DefaultPermissions(RoleStandard),
		},
	}
}
