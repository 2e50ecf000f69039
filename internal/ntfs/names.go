package ntfs

// preferName picks the better of two candidate names for the same file
// when more than one $FILE_NAME namespace is available. ListChildren uses
// it to collapse a record's index entries to one name; path-component
// matching and the Path Cache do not call it. Win32 and POSIX names are human-authored and preferred over
// a generated 8.3 DOS name; Win32DOS means the long name also happens to
// satisfy 8.3 rules, so it is preferred too.
func preferName(existing, candidate *FileNameAttr) *FileNameAttr {
	if existing == nil {
		return candidate
	}
	if candidate == nil {
		return existing
	}
	if rank(candidate.Namespace) > rank(existing.Namespace) {
		return candidate
	}
	return existing
}

// rank orders namespaces from least to most preferred: a pure DOS (8.3)
// name ranks lowest since it is the least faithful to what a user typed.
func rank(ns FileNameNamespace) int {
	switch ns {
	case NamespaceDOS:
		return 0
	case NamespacePosix:
		return 1
	case NamespaceWin32:
		return 2
	case NamespaceWin32DOS:
		return 2
	default:
		return 0
	}
}
