package httpadapter

const uploadFormHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Document sorter</title>
</head>
<body>
<h1>Select files to categorize</h1>
<form action="/v1/categorize" method="post" enctype="multipart/form-data">
<input type="file" name="files" multiple
 accept=".jpg,.jpeg,.png,.webp,.pdf,.docx,.xlsx,.exe,.ex_,.bin,.zip,.msi,.pcap">
<button type="submit">Categorize</button>
</form>
<p>The result downloads as categorized_files.zip with one folder per category
and a reports folder with text analysis for PDFs and images.</p>
</body>
</html>
`
