// Package adminapi holds the HTTP handlers of the admin API and the small
// anonymous surface used by the public website.
package adminapi

// Init registers every route; webserver.Init must run first
func Init() {
	registerAuthRoutes()
	registerProductRoutes()
	registerCategoryRoutes()
	registerServiceRoutes()
	registerGalleryRoutes()
	registerClientRoutes()
	registerBrochureRoutes()
	registerEnquiryRoutes()
	registerDashboardRoutes()
}
