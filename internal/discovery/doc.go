// Package discovery finds and advertises imagegen gateways over mDNS.
//
// Gateways register the "_imagegen._tcp" service type with a TXT record
// carrying their version and base path. The client browses for that type
// so a user on the same network can pick a gateway without typing its
// address.
//
// # Browsing
//
//	gateways, err := discovery.ScanForGateways(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, gw := range gateways {
//	    fmt.Println(gw.Name(), gw.BaseURL())
//	}
//
// # Advertising
//
//	ad, err := discovery.Advertise("imagegen on studio", 8000, map[string]string{
//	    "version": version.Version,
//	    "path":    "/",
//	})
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Client and gateway must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
