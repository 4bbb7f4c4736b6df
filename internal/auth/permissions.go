package auth

import "strings"

type StaffPermission string

const (
	PermOrders  StaffPermission = "orders"
	PermReports StaffPermission = "reports"
	PermRevenue StaffPermission = "revenue"
)

var apiPermissionMap = map[string]StaffPermission{
	"/api/merchant/analytics":            PermRevenue,
	"/api/merchant/analytics/abc.csv":    PermReports,
	"/api/merchant/analytics/report.pdf": PermReports,
	"/api/merchant/analytics/snapshots":  PermReports,
	"/api/merchant/checkout":             PermOrders,
	"/ws/merchant/analytics":             PermRevenue,
}

func GetPermissionForAPI(path string, method string) *StaffPermission {
	method = strings.ToUpper(strings.TrimSpace(method))

	var bestPath string
	var bestPerm *StaffPermission
	var bestMethodSpecific bool

	for key, perm := range apiPermissionMap {
		keyMethod := ""
		keyPath := key
		methodSpecific := false
		if strings.Contains(key, " ") {
			parts := strings.SplitN(key, " ", 2)
			keyMethod = strings.ToUpper(strings.TrimSpace(parts[0]))
			keyPath = strings.TrimSpace(parts[1])
			methodSpecific = true
			if method == "" || method != keyMethod {
				continue
			}
		}

		if !strings.HasPrefix(path, keyPath) {
			continue
		}

		if bestPerm == nil || len(keyPath) > len(bestPath) || (len(keyPath) == len(bestPath) && methodSpecific && !bestMethodSpecific) {
			bestPath = keyPath
			bestMethodSpecific = methodSpecific
			permCopy := perm
			bestPerm = &permCopy
		}
	}

	return bestPerm
}
