package domain

var Tables = []interface{}{
	// System
	&SysOpr{},
	&ActivityEvent{},
	// Catalog
	&Category{},
	&Product{},
	&Service{},
	&GalleryImage{},
	// Customers
	&Client{},
	&Enquiry{},
	&Brochure{},
}
