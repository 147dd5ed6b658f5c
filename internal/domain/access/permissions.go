package access

import "strings"

// Permission es un flag global de sistema asociado a un usuario.
// Se modela como set enumerable (no como columnas booleanas sueltas)
// para poder agregar permisos sin tocar el esquema.
type Permission string

const (
	CanManageResources           Permission = "can_manage_resources"
	CanManageUsers               Permission = "can_manage_users"
	CanManageSystemConfiguration Permission = "can_manage_system_configuration"
)

// AllPermissions es el catálogo cerrado de permisos conocidos.
var AllPermissions = []Permission{
	CanManageResources,
	CanManageUsers,
	CanManageSystemConfiguration,
}

// ParsePermission valida un permiso recibido por API.
func ParsePermission(raw string) (Permission, bool) {
	p := Permission(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range AllPermissions {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// HasPermission responde si un set de permisos contiene uno dado.
func HasPermission(set []Permission, p Permission) bool {
	for _, got := range set {
		if got == p {
			return true
		}
	}
	return false
}

// NormalizePermissions deduplica y descarta entradas desconocidas.
// Devuelve false si alguna entrada no pertenece al catálogo.
func NormalizePermissions(in []Permission) ([]Permission, bool) {
	seen := map[Permission]struct{}{}
	out := make([]Permission, 0, len(in))
	for _, raw := range in {
		p, ok := ParsePermission(string(raw))
		if !ok {
			return nil, false
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, true
}
