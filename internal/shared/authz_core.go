package shared

// Core platform permissions. Permission names are the only stable
// identifiers routes may depend on; role names and numeric ids are not.
const (
	PermUsersView   = "view_user"
	PermUsersEdit   = "edit_user"
	PermUsersDelete = "delete_user"

	PermRolesView   = "view_role"
	PermRolesManage = "manage_role"

	PermPermissionsView = "view_permission"

	PermCompaniesView = "view_company"
	PermCompaniesEdit = "edit_company"

	PermCampaignsView = "view_campaign"
	PermCampaignsEdit = "edit_campaign"
)

// CoreScopes lists all permissions seeded for the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermUsersDelete,
		PermRolesView,
		PermRolesManage,
		PermPermissionsView,
		PermCompaniesView,
		PermCompaniesEdit,
		PermCampaignsView,
		PermCampaignsEdit,
	}
}
