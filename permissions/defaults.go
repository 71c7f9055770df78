package permissions

const (
	PermViewAll            = "view:all"
	PermViewDashboards     = "view:dashboards"
	PermViewReports        = "view:reports"
	PermViewClients        = "view:clients"
	PermViewTasks          = "view:tasks"
	PermViewBilling        = "view:billing"
	PermViewTickets        = "view:tickets"
	PermManageAll          = "manage:all"
	PermManageClients      = "manage:clients"
	PermManageTasks        = "manage:tasks"
	PermManageProjects     = "manage:projects"
	PermManageBilling      = "manage:billing"
	PermManageDepartments  = "manage:departments"
	PermManageForms        = "manage:forms"
	PermManageTickets      = "manage:tickets"
	PermManageSystems      = "manage:systems"
	PermManageNotification = "manage:notifications"
	PermExportReports      = "export:reports"
	PermExportBilling      = "export:billing"
	PermApproveTreatment   = "approve:treatment-plans"
)

// DefaultGrants is the built-in grant table used when no grants file is configured.
var DefaultGrants = map[Role][]string{
	RoleClinicalDirector: {
		PermViewAll,
		PermManageClients,
		PermManageTasks,
		PermApproveTreatment,
		PermExportReports,
	},
	RoleBCBA: {
		PermViewClients,
		PermViewTasks,
		PermViewDashboards,
		PermManageTasks,
		PermApproveTreatment,
	},
	RoleBillingSpecialist: {
		PermViewBilling,
		PermViewClients,
		PermManageBilling,
		PermExportBilling,
	},
	RoleAdministrator: {
		PermViewAll,
		PermManageDepartments,
		PermManageForms,
		PermManageNotification,
	},
	RoleProjectManager: {
		PermViewDashboards,
		PermViewTasks,
		PermViewReports,
		PermManageProjects,
		PermManageTasks,
		PermManageNotification,
	},
	RoleITManager: {
		PermViewTickets,
		PermViewDashboards,
		PermManageTickets,
		PermManageSystems,
	},
	RoleClinicalStaff: {
		PermViewClients,
		PermViewTasks,
	},
	RoleExecutive: {
		PermViewAll,
		PermExportReports,
	},
}

// DefaultTable returns a Table built from DefaultGrants.
func DefaultTable() *Table {
	return NewTable(DefaultGrants)
}
