package ad

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// DirectoryUser is an on-premises Active Directory account.
type DirectoryUser struct {
	SamAccountName string
	LastLogon      time.Time
	Enabled        bool
}

// LDAPOptions configures the directory connection.
type LDAPOptions struct {
	// URL of the directory, e.g. ldaps://dc01.corp.example.com:636
	URL string
	// BaseDN to search under, e.g. DC=corp,DC=example,DC=com
	BaseDN string
	// BindUser and BindPassword authenticate the search connection.
	BindUser     string
	BindPassword string
}

const (
	userFilter         = "(&(objectCategory=person)(objectClass=user))"
	accountDisabledBit = 0x2
	ldapPageSize       = 500
)

// ListDirectoryUsers binds to the directory and returns every user
// account under the base DN with its last logon time.
//
// lastLogonTimestamp is the replicated attribute, accurate only to
// about 14 days. That is fine here: inactivity thresholds are measured
// in months.
func ListDirectoryUsers(opts LDAPOptions) ([]DirectoryUser, error) {
	conn, err := ldap.DialURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", opts.URL, err)
	}
	defer conn.Close()

	if err := conn.Bind(opts.BindUser, opts.BindPassword); err != nil {
		return nil, fmt.Errorf("failed to bind as %s: %v", opts.BindUser, err)
	}

	request := ldap.NewSearchRequest(
		opts.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		userFilter,
		[]string{"sAMAccountName", "lastLogonTimestamp", "userAccountControl"},
		nil,
	)

	result, err := conn.SearchWithPaging(request, ldapPageSize)
	if err != nil {
		return nil, fmt.Errorf("directory search failed: %v", err)
	}

	var dirUsers []DirectoryUser
	for _, entry := range result.Entries {
		sam := entry.GetAttributeValue("sAMAccountName")
		if sam == "" {
			continue
		}

		user := DirectoryUser{
			SamAccountName: sam,
			LastLogon:      filetimeToTime(entry.GetAttributeValue("lastLogonTimestamp")),
		}

		if uac, err := strconv.ParseInt(entry.GetAttributeValue("userAccountControl"), 10, 64); err == nil {
			user.Enabled = uac&accountDisabledBit == 0
		}

		dirUsers = append(dirUsers, user)
	}

	return dirUsers, nil
}

// windowsToUnixEpochSeconds is the offset between the Windows FILETIME
// epoch (1601-01-01) and the Unix epoch.
const windowsToUnixEpochSeconds = 11644473600

// filetimeToTime converts a FILETIME attribute value (100ns ticks since
// 1601-01-01 UTC, as a decimal string) to a time.Time. Empty, zero and
// unparseable values all mean "never logged on" and map to the zero
// time.
func filetimeToTime(value string) time.Time {
	ticks, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ticks == 0 {
		return time.Time{}
	}

	secs := ticks/10000000 - windowsToUnixEpochSeconds
	nanos := (ticks % 10000000) * 100
	return time.Unix(secs, nanos).UTC()
}
