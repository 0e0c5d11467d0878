package querysql

// Catalog queries against sqlite_master. ListTables takes no parameters;
// TableDefinition takes the table name as a bound parameter, never as
// literal text.

// ListTables returns user table names in name order. Internal sqlite_*
// tables are excluded.
const ListTables = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\\_%' ESCAPE '\\' ORDER BY name"

// TableDefinition returns the stored CREATE TABLE text for the table bound
// to its single parameter. No row means the table does not exist.
const TableDefinition = "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?"
