package catalog

import "strings"

// LinkTemplates holds the base URLs used to deep-link an app into ArgoCD and
// Kibana.
type LinkTemplates struct {
	ArgoCDProd        string
	ArgoCDDR          string
	ArgoCDNonProd     string
	KibanaFilter      string
	KibanaHostProdDR  string
	KibanaHostNonProd string
}

// Links is the pair of external URLs for one app in one environment.
type Links struct {
	ArgoCD string `json:"argocd"`
	Kibana string `json:"kibana"`
}

// ArgoCDURL returns the ArgoCD application page. Prod environments use the
// prod instance; DR environments point at the app's "-prod" application on the
// DR instance.
func (t LinkTemplates) ArgoCDURL(app, env string) string {
	switch {
	case strings.Contains(env, "prod"):
		return t.ArgoCDProd + app + "-" + env
	case strings.Contains(env, "dr"):
		return t.ArgoCDDR + app + "-prod"
	default:
		return t.ArgoCDNonProd + app + "-" + env
	}
}

// KibanaURL fills the filter template's APP_NAME, ENVIRONMENT and PARENT
// placeholders, then its HOSTNAME with the prod/DR or non-prod host.
func (t LinkTemplates) KibanaURL(app, env, portfolio string) string {
	u := t.KibanaFilter
	u = strings.ReplaceAll(u, "APP_NAME", app)
	u = strings.ReplaceAll(u, "ENVIRONMENT", env)
	u = strings.ReplaceAll(u, "PARENT", portfolio)

	host := t.KibanaHostNonProd
	if strings.Contains(env, "prod") || strings.Contains(env, "dr") {
		host = t.KibanaHostProdDR
	}
	return strings.Replace(u, "HOSTNAME", host, 1)
}

// For returns both URLs for app in env.
func (t LinkTemplates) For(app, env, portfolio string) Links {
	return Links{
		ArgoCD: t.ArgoCDURL(app, env),
		Kibana: t.KibanaURL(app, env, portfolio),
	}
}
