// Package cookies converts user-supplied cookie material into a canonical
// Netscape cookie-jar file and a name/value map.
//
// Users paste cookies either as an exported jar (seven tab-separated fields
// per line, sometimes with the tabs mangled into spaces) or as a raw
// "name=value; name2=value2" header string. Normalize accepts both and emits a
// jar the extraction tool can read; ExtractMap feeds the auth header builder.
package cookies
