package auth

import "html"

// TemplateUserKey is the template variable holding the signed in profile
const TemplateUserKey = "current_user"

// CSRFFieldName is the form field carrying the anti forgery token
const CSRFFieldName = "_token"

// TemplateHelpers returns functions and constants for server rendered
// pages. Register them as template globals:
//
//	for name, fn := range auth.TemplateHelpers() {
//	    engine.AddFunc(name, fn)
//	}
//
// In templates, you can then use:
//
//	{% if has_role(role, roles.admin) %}
//	<a href="{{ landing_route(role) }}">{{ display_name(current_user) }}</a>
func TemplateHelpers() map[string]any {
	return map[string]any{
		"has_role":       hasRole,
		"is_signup_role": IsSignupRole,
		"landing_route":  LandingRoute,
		"display_name":   displayName,
		"roles": map[string]string{
			"admin":   RoleAdmin,
			"parent":  RoleParent,
			"student": RoleStudent,
		},
	}
}

// TemplateHelpersWithSession adds the session derived values the layout
// needs to TemplateHelpers.
func TemplateHelpersWithSession(session Session) map[string]any {
	helpers := TemplateHelpers()
	helpers["signed_in"] = session.Authenticated()
	helpers["role"] = session.Role()
	if session.User != nil {
		helpers[TemplateUserKey] = session.User
	} else if claims := session.Claims(); claims != nil {
		helpers[TemplateUserKey] = ProfileFromClaims(claims)
	}
	return helpers
}

// CSRFTemplateHelpers exposes the anti forgery token of a request. Forms
// embed it with:
//
//	<form method="post">{{ csrf_field|safe }}</form>
func CSRFTemplateHelpers(token string) map[string]any {
	escaped := html.EscapeString(token)
	return map[string]any{
		"csrf_token":      token,
		"csrf_field_name": CSRFFieldName,
		"csrf_field":      `<input type="hidden" name="` + CSRFFieldName + `" value="` + escaped + `">`,
		"csrf_meta":       `<meta name="csrf-token" content="` + escaped + `">`,
	}
}

func hasRole(role string, allowed ...string) bool {
	return NewRoleSet(allowed...).Contains(role)
}

func displayName(profile *Profile) string {
	return profile.DisplayName()
}
