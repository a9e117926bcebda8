package constant

// SourceTemplate is a Go text/template for scaffolding new Lua adapter files.
const SourceTemplate = `{{ $divider := repeat "-" (plus (max (len .URL) (len .Name) (len .Author) 3) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @url     {{ .URL }}
-- @author  {{ .Author }}
-- @license MIT
{{ $divider }}


---@alias item { id: string, title: string, cover: string|nil, type: string|nil, year: string|nil, remarks: string|nil }
---@alias page { items: item[], total: number, pageCount: number, pageSize: number, page: number }


----- IMPORTS -----
local crypto = lib.load("crypto-js")
local json = lib.load("json")
--- END IMPORTS ---



local M = {
	id = "{{ .ID }}",
	name = "{{ .Name }}",
	baseUrl = "{{ .URL }}",
}



----- MAIN -----

--- Runs once after the adapter is loaded.
function M:{{ .InitFn }}()
end


--- Searches the source.
-- @param keyword string Query to search for
-- @param page number 1-based page number
-- @param pageSize number Items per page
-- @return page
function M:{{ .SearchFn }}(keyword, page, pageSize)
	local body = proxy.get(self.baseUrl .. "?wd=" .. keyword .. "&pg=" .. page)
	return { items = {}, total = 0, pageCount = 0, pageSize = pageSize, page = page }
end


--- Gets a single record.
-- @param id string Item identifier
function M:{{ .DetailFn }}(id)
	return { id = id, title = "", episodes = {} }
end


--- END MAIN ---

module.exports = M

-- ex: ts=4 sw=4 et filetype=lua
`
