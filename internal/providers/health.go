package providers

import "context"

// HealthStatus reports whether a provider is usable and where its
// credential comes from.
type HealthStatus struct {
	Name      string
	Connected bool
	EnvVar    string
	Source    string
	Err       error
}

// CheckAll pings each provider in order. Source is left empty for providers
// that failed to authenticate.
func CheckAll(ctx context.Context, provs []Provider) []HealthStatus {
	statuses := make([]HealthStatus, 0, len(provs))
	for _, p := range provs {
		st := HealthStatus{
			Name:   p.Name(),
			EnvVar: CredentialEnvVar(p.Name()),
			Err:    p.Ping(ctx),
		}
		st.Connected = st.Err == nil
		if st.Connected {
			st.Source = CredentialSource(p.Name())
		}
		statuses = append(statuses, st)
	}
	return statuses
}
