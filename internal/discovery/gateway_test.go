package discovery

import "testing"

func TestGateway_String(t *testing.T) {
	gw := &Gateway{
		Instance: "imagegen on studio",
		Hostname: "studio.local.",
		IP:       "192.168.4.16",
		Port:     8000,
	}

	expected := `imagegen gateway "imagegen on studio" (studio.local.) at 192.168.4.16:8000`
	if gw.String() != expected {
		t.Errorf("Gateway.String() = %v, want %v", gw.String(), expected)
	}
}

func TestGateway_Name(t *testing.T) {
	tests := []struct {
		name string
		gw   *Gateway
		want string
	}{
		{"instance words", &Gateway{Instance: "ImageGen  on Studio"}, "imagegen-on-studio"},
		{"falls back to host", &Gateway{Hostname: "lab.local."}, "lab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.gw.Name(); got != tt.want {
				t.Errorf("Gateway.Name() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGateway_GetMetadata(t *testing.T) {
	gw := &Gateway{Metadata: map[string]string{"version": "1.2.0"}}

	if got := gw.Version(); got != "1.2.0" {
		t.Errorf("Gateway.Version() = %v, want 1.2.0", got)
	}
	if got := gw.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %v, want empty", got)
	}

	var empty Gateway
	if got := empty.GetMetadata("version"); got != "" {
		t.Errorf("GetMetadata on nil map = %v, want empty", got)
	}
}
