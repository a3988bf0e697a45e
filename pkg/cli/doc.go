// Package cli provides the roleadmin command-line interface for managing
// Fooddie roles from the terminal.
//
// # Commands
//
// roles: List roles
//
//	roleadmin roles
//
// role: Show, create, update or delete a role. --role takes an ID or a name.
//
//	roleadmin role show --role store_manager
//	roleadmin role create --name shipper --display-name "Shipper" --permission ORDER_READ
//	roleadmin role update --role shipper --description "Delivery staff"
//	roleadmin role delete --role shipper --yes
//
// permissions: Show the permission matrix or change it. Arguments are
// categories (every action of the category) or single identifiers.
//
//	roleadmin permissions show --role support --search order
//	roleadmin permissions grant --role support FOOD ORDER_WRITE
//	roleadmin permissions revoke --role support --dry-run USER_READ
//
// assign: Assign users, or list candidates when no --user is given
//
//	roleadmin assign --role support --search dung
//	roleadmin assign --role support --user dung.pham --user hoa.dang
//
// members: List or remove members
//
//	roleadmin members list --role support --sort username --desc --page 2
//	roleadmin members remove --role support --user hoa.dang
//
// # Configuration
//
// The backend and token come from ROLEADMIN_API_URL and ROLEADMIN_TOKEN,
// see pkg/config.
//
// The protected super_admin role can be shown but every mutation on it is
// refused before a request is sent.
package cli
