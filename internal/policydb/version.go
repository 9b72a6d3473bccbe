package policydb

// inferVersion implements the §4.B version-inference table: the minimum
// compatibility version is the lowest value consistent with the
// declared features, scanning from the baseline up so a later trigger
// never downgrades an earlier one.
func inferVersion(p *Policy) int {
	version := 12

	for _, oc := range p.Ocontexts {
		if oc.Kind == OcontextFSUse && oc.FSBehavior == FSUseXattr {
			version = max(version, 15)
		}
		if oc.Kind == OcontextNodeCon && oc.IsIPv6 {
			version = max(version, 17)
		}
	}

	if p.Bools.Len() > 0 {
		version = max(version, 16)
	}

	if _, ok := p.Classes.LookupByName("netlink_audit_socket"); ok {
		version = max(version, 18)
	}

	if p.MLSEnabled || p.sawValidatetrans {
		version = max(version, 19)
	}

	return version
}
